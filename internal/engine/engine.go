// Package engine owns a retrieval model for one engine kind: it trains new
// model states, publishes them atomically, answers queries against the
// published state and persists it through a model store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"supportbot/internal/domain"
	"supportbot/internal/forest"
	"supportbot/internal/intent"
	"supportbot/internal/metrics"
	"supportbot/internal/modelstore"
	"supportbot/internal/textnorm"
	"supportbot/internal/vectorize"
)

// Options configures an Engine. Zero fields take the defaults of the kind.
type Options struct {
	// Threshold is the minimum (weighted) similarity for returning a stored response.
	Threshold  float64
	Vectorizer vectorize.Options
	Forest     forest.Config
	// EvalLimit caps the pairs scored when reporting match accuracy.
	EvalLimit int
	Store     modelstore.Store
	Logger    zerolog.Logger
	Now       func() time.Time
}

// DefaultOptions returns the settings of the given engine kind without a store.
func DefaultOptions(kind domain.Kind) Options {
	opts := Options{
		Threshold:  0.1,
		Vectorizer: vectorize.BasicOptions(),
		Forest:     forest.DefaultConfig(),
		EvalLimit:  200,
		Logger:     zerolog.Nop(),
		Now:        time.Now,
	}
	if kind == domain.KindEnhanced {
		opts.Vectorizer = vectorize.EnhancedOptions()
	}
	return opts
}

// snapshot is what readers see: the published model (nil when untrained)
// and the training history.
type snapshot struct {
	state   *state
	history []domain.TrainingRecord
}

// Engine is safe for concurrent use. Replies read the published snapshot
// without locking; at most one training or load runs at a time.
type Engine struct {
	kind     domain.Kind
	opts     Options
	norm     textnorm.Normalizer
	log      zerolog.Logger
	current  atomic.Pointer[snapshot]
	training atomic.Bool
}

// New creates an untrained engine.
func New(kind domain.Kind, opts Options) *Engine {
	def := DefaultOptions(kind)
	if opts.Threshold == 0 {
		opts.Threshold = def.Threshold
	}
	if opts.Vectorizer.MaxFeatures == 0 {
		opts.Vectorizer = def.Vectorizer
	}
	if opts.Forest.Trees == 0 {
		opts.Forest = def.Forest
	}
	if opts.EvalLimit == 0 {
		opts.EvalLimit = def.EvalLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{
		kind: kind,
		opts: opts,
		norm: textnorm.ForKind(kind == domain.KindEnhanced),
		log:  opts.Logger.With().Str("engine", string(kind)).Logger(),
	}
	e.current.Store(&snapshot{})
	return e
}

// Kind returns which engine this is.
func (e *Engine) Kind() domain.Kind { return e.kind }

// IsReady reports whether a trained model is published.
func (e *Engine) IsReady() bool { return e.current.Load().state != nil }

// Info describes the published model.
func (e *Engine) Info() domain.ModelInfo {
	st := e.current.Load().state
	if st == nil {
		return domain.ModelInfo{Kind: e.kind}
	}
	info := st.info
	info.Ready = true
	return info
}

// History returns a copy of the training history, oldest first.
func (e *Engine) History() []domain.TrainingRecord {
	h := e.current.Load().history
	out := make([]domain.TrainingRecord, len(h))
	copy(out, h)
	return out
}

// GenerateResponse returns the reply text for query. It never fails.
func (e *Engine) GenerateResponse(query string) string { return e.Reply(query).Text }

// Reply runs the response policy against the published model. Untrained
// engines and unexpected failures produce fixed messages instead of errors.
func (e *Engine) Reply(query string) (reply domain.Reply) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("reply generation failed")
			reply = domain.Reply{Text: MsgTechnicalDifficulties, Outcome: domain.OutcomeError, Match: -1}
		}
		metrics.ObserveReply(e.kind, reply)
	}()

	st := e.current.Load().state
	if st == nil {
		return domain.Reply{Text: MsgNotTrained, Outcome: domain.OutcomeUntrained, Match: -1}
	}
	r, err := st.respond(query, e.opts.Threshold)
	if err != nil {
		e.log.Error().Err(err).Msg("reply generation failed")
		return domain.Reply{Text: MsgTechnicalDifficulties, Outcome: domain.OutcomeError, Match: -1}
	}
	e.log.Debug().
		Str("outcome", string(r.Outcome)).
		Str("intent", string(r.Intent)).
		Float64("confidence", r.Confidence).
		Float64("similarity", r.Similarity).
		Str("band", similarityBand(r.Similarity)).
		Msg("generated reply")
	return r
}

// Train fits a new model on corpus and publishes it. The previous model stays
// visible until the new one is complete; on any failure, including
// cancellation of ctx, it stays published and a failed record is appended to
// the history.
func (e *Engine) Train(ctx context.Context, corpus domain.TrainingCorpus) (domain.TrainingResult, error) {
	if !e.training.CompareAndSwap(false, true) {
		return domain.TrainingResult{}, domain.ErrTrainingInProgress
	}
	defer e.training.Store(false)

	start := e.opts.Now()
	e.log.Info().Int("samples", corpus.Train.Len()).Msg("training started")

	next, result, err := e.fit(ctx, corpus, start)
	if err == nil {
		err = ctx.Err()
	}
	rec := domain.TrainingRecord{
		ID:          uuid.NewString(),
		Timestamp:   start,
		SampleCount: len(corpus.Train.Inputs),
	}
	prev := e.current.Load()
	if err != nil {
		rec.Status = domain.StatusFailed
		rec.Error = err.Error()
		e.current.Store(&snapshot{state: prev.state, history: appendRecord(prev.history, rec)})
		metrics.ObserveTraining(e.kind, domain.StatusFailed, time.Since(start))
		e.log.Error().Err(err).Msg("training failed")
		return domain.TrainingResult{}, fmt.Errorf("train %s engine: %w", e.kind, err)
	}

	rec.Status = domain.StatusCompleted
	rec.Accuracy = result.Accuracy
	snap := &snapshot{state: next, history: appendRecord(prev.history, rec)}
	e.persist(ctx, snap)
	e.current.Store(snap)

	took := time.Since(start)
	metrics.ObserveTraining(e.kind, domain.StatusCompleted, took)
	e.log.Info().
		Int("samples", result.TrainingSamples).
		Int("vocabulary", result.VocabularySize).
		Float64("accuracy", result.Accuracy).
		Dur("took", took).
		Msg("training completed")
	return result, nil
}

func (e *Engine) fit(ctx context.Context, corpus domain.TrainingCorpus, now time.Time) (*state, domain.TrainingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.TrainingResult{}, err
	}
	train := corpus.Train
	if len(train.Inputs) != len(train.Targets) {
		return nil, domain.TrainingResult{}, fmt.Errorf("%w: %d inputs but %d targets", domain.ErrInvalidCorpus, len(train.Inputs), len(train.Targets))
	}
	if len(train.Inputs) == 0 {
		return nil, domain.TrainingResult{}, domain.ErrEmptyCorpus
	}

	pairs := make([]domain.TrainingPair, len(train.Inputs))
	normalized := make([]string, len(train.Inputs))
	for i, in := range train.Inputs {
		normalized[i] = e.norm.Normalize(in)
		pairs[i] = domain.TrainingPair{NormalizedInput: normalized[i], RawResponse: train.Targets[i]}
	}
	space, err := vectorize.Fit(normalized, e.opts.Vectorizer)
	if err != nil {
		return nil, domain.TrainingResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.TrainingResult{}, err
	}

	result := domain.TrainingResult{
		TrainingSamples:   len(pairs),
		ValidationSamples: corpus.Validation.Len(),
		VocabularySize:    space.Dimension(),
	}
	var classifier *forest.Forest
	if e.kind == domain.KindEnhanced {
		vectors := space.Transform(normalized)
		rows := make([]forest.Row, len(vectors))
		for i, v := range vectors {
			rows[i] = featureRow(v, intent.Extract(train.Inputs[i]), space.Dimension())
		}
		labels := make([]int, len(rows))
		classes := make(map[int]struct{})
		for i, l := range intent.Labels(train.Inputs) {
			labels[i] = l.Index()
			classes[labels[i]] = struct{}{}
		}
		classifier, err = forest.Fit(ctx, rows, labels, len(domain.Intents), space.Dimension()+intent.Dimension, e.opts.Forest)
		if err != nil {
			return nil, domain.TrainingResult{}, err
		}
		result.Accuracy = classifier.Score(rows, labels)
		result.IntentClasses = len(classes)
	}

	info := domain.ModelInfo{
		Kind:              e.kind,
		TrainingSamples:   result.TrainingSamples,
		ValidationSamples: result.ValidationSamples,
		VocabularySize:    result.VocabularySize,
		IntentClasses:     result.IntentClasses,
		TrainedAt:         now,
	}
	st, err := newState(e.kind, space, pairs, classifier, info)
	if err != nil {
		return nil, domain.TrainingResult{}, err
	}
	if e.kind != domain.KindEnhanced {
		result.Accuracy = st.matchAccuracy(train, e.opts.EvalLimit)
	}
	if corpus.Validation.Len() > 0 {
		result.ValidationAccuracy = st.matchAccuracy(corpus.Validation, e.opts.EvalLimit)
	}
	st.info.Accuracy = result.Accuracy
	st.info.ValidationAccuracy = result.ValidationAccuracy
	return st, result, nil
}

// persist writes the snapshot to the store. A failed save leaves the model
// usable in memory and is only logged.
func (e *Engine) persist(ctx context.Context, snap *snapshot) {
	if e.opts.Store == nil {
		return
	}
	blob, err := encode(snap)
	if err == nil {
		err = e.opts.Store.Save(ctx, e.kind, blob)
	}
	if err != nil {
		e.log.Warn().Err(err).Str("store", e.opts.Store.Name()).Msg("saving model failed")
		return
	}
	e.log.Info().Str("store", e.opts.Store.Name()).Int("bytes", len(blob)).Msg("model saved")
}

// Load replaces the published snapshot with the stored one. A missing,
// corrupt or incompatible blob leaves the engine as it was and returns an
// error wrapping domain.ErrNotFound.
func (e *Engine) Load(ctx context.Context) error {
	if !e.training.CompareAndSwap(false, true) {
		return domain.ErrTrainingInProgress
	}
	defer e.training.Store(false)

	if e.opts.Store == nil {
		return fmt.Errorf("%s: no model store: %w", e.kind, domain.ErrNotFound)
	}
	data, err := e.opts.Store.Load(ctx, e.kind)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.log.Warn().Err(err).Msg("reading stored model failed")
		}
		return err
	}
	snap, err := decode(data, e.kind)
	if err != nil {
		e.log.Warn().Err(err).Msg("stored model is unusable, staying untrained")
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	e.current.Store(snap)
	e.log.Info().Int("samples", snap.state.info.TrainingSamples).Msg("model loaded")
	return nil
}

func appendRecord(h []domain.TrainingRecord, rec domain.TrainingRecord) []domain.TrainingRecord {
	out := make([]domain.TrainingRecord, len(h), len(h)+1)
	copy(out, h)
	return append(out, rec)
}
