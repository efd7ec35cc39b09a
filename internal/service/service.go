// Package service wires the basic and enhanced engines to the processed
// dataset and the model store, and serializes training per engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"supportbot/internal/dataset"
	"supportbot/internal/domain"
	"supportbot/internal/engine"
)

// MsgModelNotTrained is shown by Compare for an engine without a model.
const MsgModelNotTrained = "Model not trained"

// ErrNoDataset is returned when the processed dataset has not been prepared.
var ErrNoDataset = errors.New("dataset not processed yet")

// Options configures a Service.
type Options struct {
	DatasetPath string
	Basic       engine.Options
	Enhanced    engine.Options
	Logger      zerolog.Logger
}

// Service owns one engine per kind.
type Service struct {
	datasetPath string
	engines     map[domain.Kind]*engine.Engine
	admit       map[domain.Kind]*semaphore.Weighted
	log         zerolog.Logger
}

// New creates a service with untrained engines.
func New(opts Options) *Service {
	s := &Service{
		datasetPath: opts.DatasetPath,
		engines:     make(map[domain.Kind]*engine.Engine, 2),
		admit:       make(map[domain.Kind]*semaphore.Weighted, 2),
		log:         opts.Logger,
	}
	for kind, eo := range map[domain.Kind]engine.Options{domain.KindBasic: opts.Basic, domain.KindEnhanced: opts.Enhanced} {
		eo.Logger = opts.Logger
		s.engines[kind] = engine.New(kind, eo)
		s.admit[kind] = semaphore.NewWeighted(1)
	}
	return s
}

// Kinds lists the engines in display order.
func Kinds() []domain.Kind { return []domain.Kind{domain.KindBasic, domain.KindEnhanced} }

// SelectKinds maps "basic", "enhanced" or "all" onto engine kinds.
func SelectKinds(name string) ([]domain.Kind, error) {
	switch name {
	case "all", "both":
		return Kinds(), nil
	case string(domain.KindBasic), string(domain.KindEnhanced):
		return []domain.Kind{domain.Kind(name)}, nil
	default:
		return nil, fmt.Errorf("unknown model type %q", name)
	}
}

// Engine returns the engine of the given kind; unknown kinds get the basic one.
func (s *Service) Engine(kind domain.Kind) *engine.Engine {
	if e, ok := s.engines[kind]; ok {
		return e
	}
	return s.engines[domain.KindBasic]
}

// LoadAll restores persisted models. Engines whose blob is missing or
// unusable stay untrained; only unexpected store failures are returned.
func (s *Service) LoadAll(ctx context.Context) error {
	var errs []error
	for _, kind := range Kinds() {
		err := s.engines[kind].Load(ctx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			s.log.Info().Str("engine", string(kind)).Msg("no stored model, starting untrained")
		default:
			errs = append(errs, fmt.Errorf("load %s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// Dataset reads the processed dataset.
func (s *Service) Dataset() (*dataset.Processed, error) {
	p, err := dataset.Load(s.datasetPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.datasetPath, ErrNoDataset)
	}
	return p, err
}

// TrainFromDataset trains one engine on the processed dataset. Calls for
// the same engine wait for each other.
func (s *Service) TrainFromDataset(ctx context.Context, kind domain.Kind) (domain.TrainingResult, error) {
	p, err := s.Dataset()
	if err != nil {
		return domain.TrainingResult{}, err
	}
	return s.Train(ctx, kind, p.TrainingCorpus)
}

// Train trains one engine on corpus once any running training of that engine ends.
func (s *Service) Train(ctx context.Context, kind domain.Kind, corpus domain.TrainingCorpus) (domain.TrainingResult, error) {
	sem, ok := s.admit[kind]
	if !ok {
		return domain.TrainingResult{}, fmt.Errorf("unknown model type %q", kind)
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return domain.TrainingResult{}, err
	}
	defer sem.Release(1)
	return s.engines[kind].Train(ctx, corpus)
}

// Reply answers message with the engine of the given kind.
func (s *Service) Reply(kind domain.Kind, message string) domain.Reply {
	return s.Engine(kind).Reply(message)
}

// CompareEntry is one engine's side of a comparison.
type CompareEntry struct {
	Response     string        `json:"response"`
	ResponseTime float64       `json:"response_time"`
	Available    bool          `json:"available"`
	Reply        *domain.Reply `json:"reply,omitempty"`
}

// Compare asks every trained engine the same message.
func (s *Service) Compare(message string) map[domain.Kind]CompareEntry {
	out := make(map[domain.Kind]CompareEntry, len(s.engines))
	for _, kind := range Kinds() {
		e := s.engines[kind]
		if !e.IsReady() {
			out[kind] = CompareEntry{Response: MsgModelNotTrained}
			continue
		}
		start := time.Now()
		r := e.Reply(message)
		out[kind] = CompareEntry{
			Response:     r.Text,
			ResponseTime: time.Since(start).Seconds(),
			Available:    true,
			Reply:        &r,
		}
	}
	return out
}

// EngineStatus is the published info and history of one engine.
type EngineStatus struct {
	Loaded  bool                    `json:"loaded"`
	Info    domain.ModelInfo        `json:"info"`
	History []domain.TrainingRecord `json:"training_history"`
}

// Status reports every engine.
func (s *Service) Status() map[domain.Kind]EngineStatus {
	out := make(map[domain.Kind]EngineStatus, len(s.engines))
	for kind, e := range s.engines {
		out[kind] = EngineStatus{Loaded: e.IsReady(), Info: e.Info(), History: e.History()}
	}
	return out
}
