// Package dataset loads the sentence polarity corpus and turns it into padded batches.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Label is a polarity class. The class index doubles as the model output index.
type Label int

const (
	Positive Label = iota
	Negative
)

// NumLabels is the number of polarity classes.
const NumLabels = 2

func (l Label) String() string {
	switch l {
	case Positive:
		return "pos"
	case Negative:
		return "neg"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// Sentence is a pre-tokenized sentence with its polarity.
type Sentence struct {
	Tokens []string
	Label  Label
}

// Corpus is the train/test split of the polarity data.
type Corpus struct {
	Train []Sentence
	Test  []Sentence
}

// All returns every sentence, training split first.
func (c *Corpus) All() []Sentence {
	out := make([]Sentence, 0, len(c.Train)+len(c.Test))
	out = append(out, c.Train...)
	return append(out, c.Test...)
}

// Tokens returns the token lists of every sentence, for building a vocabulary.
func (c *Corpus) Tokens() [][]string {
	all := c.All()
	out := make([][]string, len(all))
	for i, s := range all {
		out[i] = s.Tokens
	}
	return out
}

// Corpus file names inside the polarity directory.
const (
	PositiveFile = "rt-polarity.pos"
	NegativeFile = "rt-polarity.neg"
)

// LoadPolarity reads the positive and negative sentence files in dir. The
// first trainPerClass sentences of each class form the training split, the
// remainder the test split.
func LoadPolarity(dir string, trainPerClass int) (*Corpus, error) {
	if trainPerClass < 0 {
		return nil, fmt.Errorf("train per class must not be negative, got %d", trainPerClass)
	}
	pos, err := readSentences(filepath.Join(dir, PositiveFile), Positive)
	if err != nil {
		return nil, err
	}
	neg, err := readSentences(filepath.Join(dir, NegativeFile), Negative)
	if err != nil {
		return nil, err
	}
	c := &Corpus{}
	for _, class := range [][]Sentence{pos, neg} {
		n := min(trainPerClass, len(class))
		c.Train = append(c.Train, class[:n]...)
	}
	for _, class := range [][]Sentence{pos, neg} {
		n := min(trainPerClass, len(class))
		c.Test = append(c.Test, class[n:]...)
	}
	return c, nil
}

func readSentences(path string, label Label) ([]Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return ReadSentences(f, label)
}

// ReadSentences reads one Latin-1 encoded, whitespace-tokenized sentence per
// line. Blank lines are skipped.
func ReadSentences(r io.Reader, label Label) ([]Sentence, error) {
	var out []Sentence
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		out = append(out, Sentence{Tokens: tokens, Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return out, nil
}
