package variant

import "testing"

func TestLookup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tag       string
		repo      string
		tokenizer string
		instruct  bool
		gqa       int
		format    string
	}{
		{tag: "7b-chat", repo: "TheBloke/Llama-2-7B-Chat-GGML", tokenizer: llamaTokenizerRepo, gqa: 1, format: "ggml"},
		{tag: "70B", repo: "TheBloke/Llama-2-70B-GGML", tokenizer: llamaTokenizerRepo, gqa: 8, format: "ggml"},
		{tag: "34b-code", repo: "TheBloke/CodeLlama-34B-GGUF", tokenizer: llamaTokenizerRepo, gqa: 1, format: "gguf"},
		{tag: " 7b-mistral-instruct ", repo: "TheBloke/Mistral-7B-Instruct-v0.1-GGUF", tokenizer: mistralTokenizerRepo, instruct: true, gqa: 8, format: "gguf"},
		{tag: "7b-rift-solver", repo: "morph-labs/morph-prover-v0-7b-gguf", tokenizer: llamaTokenizerRepo, gqa: 1, format: "gguf"},
	}
	for _, tc := range cases {
		v, err := Lookup(tc.tag)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tc.tag, err)
		}
		if v.Repo != tc.repo || v.TokenizerRepo != tc.tokenizer || v.Instruct != tc.instruct || v.GQA != tc.gqa || v.Format() != tc.format {
			t.Fatalf("Lookup(%q) = %+v", tc.tag, v)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()

	if _, err := Lookup("8b"); err == nil {
		t.Fatalf("expected error for unknown tag")
	}
}

func TestTableIsConsistent(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, v := range All() {
		if seen[v.Tag] {
			t.Fatalf("duplicate tag %q", v.Tag)
		}
		seen[v.Tag] = true
		if v.Repo == "" || v.File == "" || v.TokenizerRepo == "" || v.GQA <= 0 {
			t.Fatalf("incomplete entry %+v", v)
		}
	}
	if len(seen) != 12 {
		t.Fatalf("table has %d variants, want 12", len(seen))
	}
	if _, err := Lookup(DefaultTag); err != nil {
		t.Fatalf("default tag: %v", err)
	}
}
