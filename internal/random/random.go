package random

import (
	"crypto/rand"
	"github.com/myrjola/chronicler/internal/errors"
	"math/big"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters returns a cryptographically random string of n ASCII letters.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	upperBound := big.NewInt(int64(len(allowedLetters)))
	for i := range letters {
		letterIndex, err := rand.Int(rand.Reader, upperBound)
		if err != nil {
			return "", errors.Wrap(err, "random int")
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}
