// Package tokenizer provides the text <-> token id collaborators used by the
// generation loop.
package tokenizer

// Tokenizer is the surface shared by every tokenizer in this package.
type Tokenizer interface {
	// Encode returns the ids for text together with each id's vocabulary
	// surface string.
	Encode(text string) ([]int, []string, error)
	Decode(ids []int) (string, error)
	IDToToken(id int) (string, bool)
	// EOSTokenID is -1 when the vocabulary has no end-of-sequence token.
	EOSTokenID() int
	VocabSize() int
}

var _ Tokenizer = (*HF)(nil)
