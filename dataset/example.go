package dataset

// Vocabulary is the read-only token lookup the dataset needs.
type Vocabulary interface {
	IDs(tokens []string) []int64
	PadID() int64
	Len() int
}

// Example is an encoded sentence: token ids and the class label.
type Example struct {
	IDs   []int64
	Label Label
}

// Encode converts sentences to examples. Unknown tokens become the unknown id.
func Encode(v Vocabulary, sentences []Sentence) []Example {
	out := make([]Example, len(sentences))
	for i, s := range sentences {
		out[i] = Example{IDs: v.IDs(s.Tokens), Label: s.Label}
	}
	return out
}
