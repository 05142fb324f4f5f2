package notes

import (
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates prompt sizes with the cl100k_base encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "load cl100k_base encoding")
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "encode text")
	}
	return len(ids), nil
}
