package tokenizer

import "fmt"

// Ids of the control tokens in the built-in character vocabulary.
const (
	CharUnkID = 0
	CharBOSID = 1
	CharEOSID = 2
)

// NewChar returns a tokenizer over a fixed character vocabulary: the three
// control tokens, the space placeholder, printable ASCII and one token per
// byte for everything else. It needs no files and never fails to encode.
func NewChar() *HF {
	tokens := []string{"<unk>", "<s>", "</s>", metaspace}
	for b := '!'; b <= '~'; b++ {
		tokens = append(tokens, string(b))
	}
	for b := range 256 {
		tokens = append(tokens, fmt.Sprintf("<0x%02X>", b))
	}
	vocab := make(map[string]int, len(tokens))
	for id, tok := range tokens {
		vocab[tok] = id
	}

	t := &HF{
		vocab:        vocab,
		tokens:       tokens,
		ranks:        map[Pair]int{},
		cache:        make(map[string][]string),
		scheme:       schemeMetaspace,
		byteFallback: true,
		addBOS:       true,
		bosID:        CharBOSID,
		eosID:        CharEOSID,
		unkID:        CharUnkID,
	}
	t.setSpecials(tokens[:3])
	return t
}
