package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"supportbot/internal/domain"
	"supportbot/internal/forest"
	"supportbot/internal/intent"
	"supportbot/internal/vectorize"
)

const (
	blobFormat  = "supportbot/model"
	blobVersion = 1
)

// blob is the persisted form of a snapshot. Corpus vectors are not stored;
// they are recomputed from the vocabulary and the normalized inputs.
type blob struct {
	Format  string                  `json:"format"`
	Version int                     `json:"version"`
	Kind    domain.Kind             `json:"kind"`
	Space   *vectorize.Space        `json:"space"`
	Pairs   []domain.TrainingPair   `json:"pairs"`
	Forest  *forest.Forest          `json:"forest,omitempty"`
	Info    domain.ModelInfo        `json:"info"`
	History []domain.TrainingRecord `json:"history"`
}

func encode(snap *snapshot) ([]byte, error) {
	if snap.state == nil {
		return nil, domain.ErrUntrained
	}
	st := snap.state
	return json.Marshal(blob{
		Format:  blobFormat,
		Version: blobVersion,
		Kind:    st.kind,
		Space:   st.space,
		Pairs:   st.pairs,
		Forest:  st.forest,
		Info:    st.info,
		History: snap.history,
	})
}

// decode rebuilds a snapshot and rejects anything that would not answer
// queries the way the encoded engine did. A blob that slips past the checks
// and panics while rebuilding is reported as an error.
func decode(data []byte, kind domain.Kind) (snap *snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("model blob is unusable: %v", r)
		}
	}()
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode model blob: %w", err)
	}
	if b.Format != blobFormat || b.Version != blobVersion {
		return nil, fmt.Errorf("unsupported model blob %q version %d", b.Format, b.Version)
	}
	if b.Kind != kind {
		return nil, fmt.Errorf("model blob is for the %s engine", b.Kind)
	}
	if b.Space == nil {
		return nil, errors.New("model blob has no vector space")
	}
	if err := b.Space.Validate(); err != nil {
		return nil, err
	}
	if kind == domain.KindEnhanced {
		if b.Forest == nil {
			return nil, errors.New("model blob has no intent classifier")
		}
		if err := b.Forest.Validate(); err != nil {
			return nil, err
		}
		if b.Forest.NumClasses != len(domain.Intents) || b.Forest.NumFeatures != b.Space.Dimension()+intent.Dimension {
			return nil, fmt.Errorf("intent classifier shape %dx%d does not match the vector space", b.Forest.NumClasses, b.Forest.NumFeatures)
		}
	} else {
		b.Forest = nil
	}
	st, err := newState(kind, b.Space, b.Pairs, b.Forest, b.Info)
	if err != nil {
		return nil, err
	}
	return &snapshot{state: st, history: b.History}, nil
}
