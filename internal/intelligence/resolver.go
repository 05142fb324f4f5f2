package intelligence

import (
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"log/slog"
	"strings"
)

// Resolver identifies the characters of one campaign by id or by case-insensitive exact name.
type Resolver struct {
	byID   map[string]models.Character
	byName map[string][]models.Character
}

func NewResolver(characters []models.Character) *Resolver {
	r := &Resolver{
		byID:   make(map[string]models.Character, len(characters)),
		byName: make(map[string][]models.Character, len(characters)),
	}
	for _, character := range characters {
		r.Add(character)
	}
	return r
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Add makes a character created during the current batch resolvable.
func (r *Resolver) Add(character models.Character) {
	r.byID[character.ID] = character
	key := nameKey(character.Name)
	for i, existing := range r.byName[key] {
		if existing.ID == character.ID {
			r.byName[key][i] = character
			return
		}
	}
	r.byName[key] = append(r.byName[key], character)
}

// Resolve finds a character by id first and falls back to name. Names shared by several characters do not
// resolve. Failures wrap ErrUnresolved.
func (r *Resolver) Resolve(id *string, name string) (models.Character, error) {
	if id != nil {
		if character, ok := r.byID[*id]; ok {
			return character, nil
		}
	}
	matches := r.byName[nameKey(name)]
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.Character{}, errors.Wrap(ErrUnresolved, "character not found", slog.String("name", name))
	default:
		return models.Character{}, errors.Wrap(ErrUnresolved, "character name is ambiguous",
			slog.String("name", name), slog.Int("matches", len(matches)))
	}
}

// Known reports whether at least one character is called name.
func (r *Resolver) Known(name string) bool {
	return len(r.byName[nameKey(name)]) > 0
}
