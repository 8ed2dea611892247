// Package tokenizer maps tokens to ids for the sentence classifier and
// normalizes raw text into tokens.
package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reserved tokens. PadToken always has id 0 and UnkToken id 1.
const (
	PadToken = "<pad>"
	UnkToken = "<unk>"
)

// ErrUnknownID is returned when an id is outside the vocabulary.
var ErrUnknownID = errors.New("token id outside vocabulary")

// Vocab is an immutable one-to-one mapping between tokens and ids.
// Safe for concurrent reads.
type Vocab struct {
	idToToken []string
	tokenToID map[string]int64
}

// Build counts tokens over sentences and assigns ids in first-seen order after
// the reserved tokens. Tokens occurring fewer than minFreq times map to UnkToken.
func Build(sentences [][]string, minFreq int, reserved ...string) *Vocab {
	freq := make(map[string]int)
	var order []string
	for _, s := range sentences {
		for _, tok := range s {
			if freq[tok] == 0 {
				order = append(order, tok)
			}
			freq[tok]++
		}
	}
	tokens := append([]string{PadToken, UnkToken}, reserved...)
	for _, tok := range order {
		if freq[tok] >= minFreq {
			tokens = append(tokens, tok)
		}
	}
	return newVocab(tokens)
}

func newVocab(tokens []string) *Vocab {
	v := &Vocab{tokenToID: make(map[string]int64, len(tokens))}
	for _, tok := range tokens {
		if _, dup := v.tokenToID[tok]; dup {
			continue
		}
		v.tokenToID[tok] = int64(len(v.idToToken))
		v.idToToken = append(v.idToToken, tok)
	}
	return v
}

// FromTokens rebuilds a vocabulary from its id-ordered token list, as written
// by WriteTo. The first two tokens must be the reserved pad and unk tokens.
func FromTokens(tokens []string) (*Vocab, error) {
	if len(tokens) < 2 || tokens[0] != PadToken || tokens[1] != UnkToken {
		return nil, fmt.Errorf("vocabulary must start with %s and %s", PadToken, UnkToken)
	}
	v := newVocab(tokens)
	if v.Len() != len(tokens) {
		return nil, errors.New("vocabulary contains duplicate tokens")
	}
	return v, nil
}

// Len returns the number of ids.
func (v *Vocab) Len() int { return len(v.idToToken) }

// PadID is the id used to right-pad batches.
func (v *Vocab) PadID() int64 { return 0 }

// UnkID is the id of out-of-vocabulary tokens.
func (v *Vocab) UnkID() int64 { return 1 }

// ID returns the id of tok, or UnkID if tok is unknown.
func (v *Vocab) ID(tok string) int64 {
	if id, ok := v.tokenToID[tok]; ok {
		return id
	}
	return v.UnkID()
}

// IDs converts a token sequence. Unknown tokens are silently mapped to UnkID.
func (v *Vocab) IDs(tokens []string) []int64 {
	out := make([]int64, len(tokens))
	for i, tok := range tokens {
		out[i] = v.ID(tok)
	}
	return out
}

// Token returns the token for id.
func (v *Vocab) Token(id int64) (string, error) {
	if id < 0 || id >= int64(len(v.idToToken)) {
		return "", fmt.Errorf("id %d with %d tokens: %w", id, len(v.idToToken), ErrUnknownID)
	}
	return v.idToToken[id], nil
}

// Tokens returns a copy of the id-ordered token list.
func (v *Vocab) Tokens() []string {
	out := make([]string, len(v.idToToken))
	copy(out, v.idToToken)
	return out
}

// WriteTo writes one token per line in id order.
func (v *Vocab) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, tok := range v.idToToken {
		m, err := bw.WriteString(tok + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadVocab reads a vocabulary written by WriteTo.
func ReadVocab(r io.Reader) (*Vocab, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tok := strings.TrimRight(scanner.Text(), "\r")
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return FromTokens(tokens)
}
