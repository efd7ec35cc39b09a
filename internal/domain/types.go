package domain

import "time"

// Kind names one of the two retrieval engines.
type Kind string

const (
	KindBasic    Kind = "basic"
	KindEnhanced Kind = "enhanced"
)

// ParseKind maps a user supplied model type onto a Kind. Anything that is not
// "enhanced" selects the basic engine, matching the transport's default.
func ParseKind(s string) Kind {
	if s == string(KindEnhanced) {
		return KindEnhanced
	}
	return KindBasic
}

// Split is one ordered half of a training corpus. Inputs[i] pairs with Targets[i].
type Split struct {
	Inputs  []string `json:"inputs"`
	Targets []string `json:"targets"`
}

// Len returns the number of aligned pairs in the split.
func (s Split) Len() int {
	if len(s.Inputs) < len(s.Targets) {
		return len(s.Inputs)
	}
	return len(s.Targets)
}

// TrainingCorpus is what the data-ingestion side hands to an engine.
// The validation split is used for reporting only.
type TrainingCorpus struct {
	Train      Split `json:"train"`
	Validation Split `json:"validation"`
}

// TrainingPair is one stored query with its paired response.
type TrainingPair struct {
	NormalizedInput string `json:"normalized_input"`
	RawResponse     string `json:"raw_response"`
}

// TrainingResult summarizes a successful training run.
type TrainingResult struct {
	Accuracy           float64 `json:"accuracy"`
	ValidationAccuracy float64 `json:"validation_accuracy"`
	TrainingSamples    int     `json:"training_samples"`
	ValidationSamples  int     `json:"validation_samples"`
	VocabularySize     int     `json:"vocabulary_size"`
	IntentClasses      int     `json:"intent_classes,omitempty"`
}

// TrainingStatus is the outcome recorded for a training attempt.
type TrainingStatus string

const (
	StatusCompleted TrainingStatus = "completed"
	StatusFailed    TrainingStatus = "failed"
)

// TrainingRecord is one entry of an engine's append-only training history.
type TrainingRecord struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	SampleCount int            `json:"sample_count"`
	Accuracy    float64        `json:"accuracy"`
	Status      TrainingStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// ModelInfo describes the currently published state of an engine.
type ModelInfo struct {
	Kind               Kind      `json:"kind"`
	Ready              bool      `json:"ready"`
	TrainingSamples    int       `json:"training_samples"`
	ValidationSamples  int       `json:"validation_samples"`
	VocabularySize     int       `json:"vocabulary_size"`
	IntentClasses      int       `json:"intent_classes,omitempty"`
	Accuracy           float64   `json:"train_accuracy"`
	ValidationAccuracy float64   `json:"validation_accuracy"`
	TrainedAt          time.Time `json:"trained_at"`
}

// Outcome tells which branch of the response policy produced a reply.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeFallback  Outcome = "fallback"
	OutcomeUntrained Outcome = "untrained"
	OutcomeError     Outcome = "error"
)

// Candidate is a ranked corpus entry considered for a reply.
type Candidate struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Reply is the typed result of response generation. Text is always set.
type Reply struct {
	Text       string      `json:"response"`
	Outcome    Outcome     `json:"outcome"`
	Intent     Intent      `json:"intent,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Similarity float64     `json:"similarity"`
	Match      int         `json:"match"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Responder turns a free-text query into a reply. Implementations never fail.
type Responder interface {
	Reply(query string) Reply
	GenerateResponse(query string) string
	IsReady() bool
}
