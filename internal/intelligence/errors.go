package intelligence

import (
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
)

var (
	// ErrCollection is returned when the campaign content cannot be read.
	ErrCollection = errors.NewSentinel("collect campaign content")
	// ErrGeneration is returned when the model fails or its output cannot be parsed. Retrying may help.
	ErrGeneration = errors.NewSentinel("generate suggestions")
	// ErrUnresolved is returned when a suggestion references an entity that cannot be identified.
	ErrUnresolved = errors.NewSentinel("unresolved reference")
	// ErrAlreadyExists is returned when applying a suggestion would only repeat an entry that is already recorded.
	ErrAlreadyExists = errors.NewSentinel("already exists")
	// ErrSuggestionShape is returned when a suggestion does not match the schema of its type.
	ErrSuggestionShape = models.ErrSuggestionShape
)
