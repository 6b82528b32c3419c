package gguf

import "fmt"

// Token types of tokenizer.ggml.token_type.
const (
	TokenNormal      int32 = 1
	TokenUnknown     int32 = 2
	TokenControl     int32 = 3
	TokenUserDefined int32 = 4
	TokenUnused      int32 = 5
	TokenByte        int32 = 6
)

// Vocab is the tokenizer embedded in a GGUF file.
type Vocab struct {
	// Model is tokenizer.ggml.model: "llama" for SentencePiece vocabularies
	// with scores, "gpt2" for byte-level BPE with merges.
	Model  string
	Tokens []string
	Scores []float32
	Types  []int32
	Merges []string

	// Ids are -1 when the file does not name the token.
	BOS int
	EOS int
	UNK int

	AddBOS         bool
	AddSpacePrefix bool
}

// Vocab extracts the embedded tokenizer.
func (f *File) Vocab() (Vocab, error) {
	v := Vocab{BOS: -1, EOS: -1, UNK: -1, AddBOS: true, AddSpacePrefix: true}

	var ok bool
	if v.Model, ok = f.KV.String("tokenizer.ggml.model"); !ok {
		return Vocab{}, fmt.Errorf("missing tokenizer.ggml.model")
	}
	if v.Tokens, ok = Array[string](f.KV, "tokenizer.ggml.tokens"); !ok || len(v.Tokens) == 0 {
		return Vocab{}, fmt.Errorf("missing or invalid tokenizer.ggml.tokens")
	}
	if scores, ok := Array[float32](f.KV, "tokenizer.ggml.scores"); ok {
		v.Scores = scores
	}
	if types, ok := Array[int32](f.KV, "tokenizer.ggml.token_type"); ok {
		v.Types = types
	}
	if merges, ok := Array[string](f.KV, "tokenizer.ggml.merges"); ok {
		v.Merges = merges
	}

	for key, dst := range map[string]*int{
		"tokenizer.ggml.bos_token_id":     &v.BOS,
		"tokenizer.ggml.eos_token_id":     &v.EOS,
		"tokenizer.ggml.unknown_token_id": &v.UNK,
	} {
		id, ok := f.KV.Int64(key)
		if !ok {
			continue
		}
		if id < 0 || id >= int64(len(v.Tokens)) {
			return Vocab{}, fmt.Errorf("%s %d outside vocabulary of %d", key, id, len(v.Tokens))
		}
		*dst = int(id)
	}
	if v.EOS < 0 {
		return Vocab{}, fmt.Errorf("missing tokenizer.ggml.eos_token_id")
	}
	if b, ok := f.KV.Bool("tokenizer.ggml.add_bos_token"); ok {
		v.AddBOS = b
	}
	if b, ok := f.KV.Bool("tokenizer.ggml.add_space_prefix"); ok {
		v.AddSpacePrefix = b
	}
	return v, nil
}

// TokenType returns the type of token id, TokenNormal when the file has no
// type table.
func (v Vocab) TokenType(id int) int32 {
	if id < 0 || id >= len(v.Types) {
		return TokenNormal
	}
	return v.Types[id]
}
