// Package variant holds the static table of model variants cinder knows how
// to provision: where the weights and tokenizer live and how prompts for the
// variant are framed.
package variant

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultTag is the variant used when none is selected.
const DefaultTag = "7b-chat"

const (
	llamaTokenizerRepo   = "hf-internal-testing/llama-tokenizer"
	mistralTokenizerRepo = "mistralai/Mistral-7B-v0.1"
)

// Variant describes one provisionable model.
type Variant struct {
	Tag           string `json:"tag" yaml:"tag"`
	Repo          string `json:"repo" yaml:"repo"`
	File          string `json:"file" yaml:"file"`
	TokenizerRepo string `json:"tokenizer_repo" yaml:"tokenizer_repo"`
	// Instruct selects the [INST] framing for interactive turns.
	Instruct bool `json:"instruct" yaml:"instruct"`
	// GQA is the grouped-query attention factor of the weights.
	GQA int `json:"gqa" yaml:"gqa"`
}

// Format is the container format implied by the weight file name.
func (v Variant) Format() string {
	if strings.HasSuffix(v.File, ".gguf") {
		return "gguf"
	}
	return "ggml"
}

var table = []Variant{
	{Tag: "7b", Repo: "TheBloke/Llama-2-7B-GGML", File: "llama-2-7b.ggmlv3.q4_0.bin", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "13b", Repo: "TheBloke/Llama-2-13B-GGML", File: "llama-2-13b.ggmlv3.q4_0.bin", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "70b", Repo: "TheBloke/Llama-2-70B-GGML", File: "llama-2-70b.ggmlv3.q4_0.bin", TokenizerRepo: llamaTokenizerRepo, GQA: 8},
	{Tag: "7b-chat", Repo: "TheBloke/Llama-2-7B-Chat-GGML", File: "llama-2-7b-chat.ggmlv3.q4_0.bin", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "13b-chat", Repo: "TheBloke/Llama-2-13B-Chat-GGML", File: "llama-2-13b-chat.ggmlv3.q4_0.bin", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "70b-chat", Repo: "TheBloke/Llama-2-70B-Chat-GGML", File: "llama-2-70b-chat.ggmlv3.q4_0.bin", TokenizerRepo: llamaTokenizerRepo, GQA: 8},
	{Tag: "7b-code", Repo: "TheBloke/CodeLlama-7B-GGUF", File: "codellama-7b.Q8_0.gguf", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "13b-code", Repo: "TheBloke/CodeLlama-13B-GGUF", File: "codellama-13b.Q8_0.gguf", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "34b-code", Repo: "TheBloke/CodeLlama-34B-GGUF", File: "codellama-34b.Q8_0.gguf", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
	{Tag: "7b-mistral", Repo: "TheBloke/Mistral-7B-v0.1-GGUF", File: "mistral-7b-v0.1.Q4_K_S.gguf", TokenizerRepo: mistralTokenizerRepo, Instruct: true, GQA: 8},
	{Tag: "7b-mistral-instruct", Repo: "TheBloke/Mistral-7B-Instruct-v0.1-GGUF", File: "mistral-7b-instruct-v0.1.Q4_K_S.gguf", TokenizerRepo: mistralTokenizerRepo, Instruct: true, GQA: 8},
	{Tag: "7b-rift-solver", Repo: "morph-labs/morph-prover-v0-7b-gguf", File: "gguf-model-Q8_0.gguf", TokenizerRepo: llamaTokenizerRepo, GQA: 1},
}

// Lookup returns the variant registered under tag. Matching ignores case.
func Lookup(tag string) (Variant, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	i := slices.IndexFunc(table, func(v Variant) bool { return v.Tag == tag })
	if i < 0 {
		return Variant{}, fmt.Errorf("unknown variant %q (known: %s)", tag, strings.Join(Tags(), ", "))
	}
	return table[i], nil
}

// All returns a copy of the table in declaration order.
func All() []Variant {
	return slices.Clone(table)
}

// Tags lists the registered tags in declaration order.
func Tags() []string {
	tags := make([]string, len(table))
	for i, v := range table {
		tags[i] = v.Tag
	}
	return tags
}
