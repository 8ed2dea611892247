package tokenizer

import (
	"strings"

	"github.com/sugarme/tokenizer/normalizer"
)

var bert = normalizer.NewBertNormalizer(true, true, true, true)

// Normalize cleans control characters, lowercases and strips accents the way
// a BERT normalizer does, which matches the lowercased polarity corpus.
func Normalize(text string) (string, error) {
	n, err := bert.Normalize(normalizer.NewNormalizedFrom(text))
	if err != nil {
		return "", err
	}
	return n.GetNormalized(), nil
}

// Split normalizes raw text and splits it on whitespace.
func Split(text string) ([]string, error) {
	norm, err := Normalize(text)
	if err != nil {
		return nil, err
	}
	return strings.Fields(norm), nil
}
