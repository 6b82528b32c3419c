package tokenizer

import (
	"fmt"
	"slices"

	"github.com/samcharles93/cinder/internal/gguf"
)

// LoadGGUF builds a tokenizer from the vocabulary embedded in a GGUF file.
func LoadGGUF(path string) (*HF, error) {
	f, err := gguf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read gguf: %w", err)
	}
	v, err := f.Vocab()
	if err != nil {
		return nil, fmt.Errorf("gguf vocabulary: %w", err)
	}
	return FromGGUF(v)
}

// FromGGUF builds a tokenizer from a GGUF vocabulary. SentencePiece ("llama")
// vocabularies merge by score with byte fallback; "gpt2" vocabularies use
// byte-level BPE over the listed merges. Control tokens are matched
// verbatim and dropped when decoding.
func FromGGUF(v gguf.Vocab) (*HF, error) {
	tokens := slices.Clone(v.Tokens)
	vocab := make(map[string]int, len(tokens))
	for id, tok := range tokens {
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
	}

	t := &HF{
		vocab:  vocab,
		tokens: tokens,
		cache:  make(map[string][]string),
		addBOS: v.AddBOS && v.BOS >= 0,
		bosID:  v.BOS,
		eosID:  v.EOS,
		unkID:  v.UNK,
	}

	switch v.Model {
	case "llama":
		if len(v.Scores) != len(tokens) {
			return nil, fmt.Errorf("gguf vocabulary has %d scores for %d tokens", len(v.Scores), len(tokens))
		}
		t.scores = slices.Clone(v.Scores)
		t.scheme = schemeMetaspace
		t.byteFallback = true
		t.prependSpace = v.AddSpacePrefix
	case "gpt2":
		merges := make([]any, len(v.Merges))
		for i, m := range v.Merges {
			merges[i] = m
		}
		t.ranks = parseMerges(merges)
		t.scheme = schemeByteLevel
		t.byteEncoder, t.byteDecoder = bytesToUnicode()
		t.pattern = byteLevelPattern(hfPreTokenizer{})
	default:
		return nil, fmt.Errorf("unsupported gguf tokenizer model %q", v.Model)
	}

	var control []string
	for id, tok := range tokens {
		if v.TokenType(id) == gguf.TokenControl {
			control = append(control, tok)
		}
	}
	t.setSpecials(control)
	return t, nil
}
