package domain

import "errors"

var (
	// ErrEmptyCorpus is returned when a corpus has no usable entries after preprocessing.
	ErrEmptyCorpus = errors.New("empty training corpus")
	// ErrInvalidCorpus is returned when inputs and targets are not aligned.
	ErrInvalidCorpus = errors.New("invalid training corpus")
	// ErrInsufficientData is returned when training data lacks label diversity.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrTrainingInProgress is returned when a second fit starts on a busy engine.
	ErrTrainingInProgress = errors.New("training already in progress")
	// ErrNotFound is returned by model stores when no usable blob exists.
	ErrNotFound = errors.New("model state not found")
	// ErrUntrained is returned by operations that need a fitted model.
	ErrUntrained = errors.New("model not trained")
)

// IsInputError reports whether err is caused by the caller's training data.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyCorpus) || errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrInvalidCorpus)
}
