package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/cinder/internal/gguf"
	"github.com/samcharles93/cinder/internal/logger"
	"github.com/urfave/cli/v3"
)

// writeTinyGGUF writes a llama header with a small SentencePiece vocabulary,
// a trained context of ctxLen and one tensor.
func writeTinyGGUF(t *testing.T, name string, ctxLen uint32) string {
	t.Helper()
	var b bytes.Buffer
	w := func(x any) { _ = binary.Write(&b, binary.LittleEndian, x) }
	str := func(s string) {
		w(uint64(len(s)))
		b.WriteString(s)
	}
	tokens := []string{"<unk>", "<s>", "</s>", "▁", "a", "b", "▁a"}

	b.WriteString("GGUF")
	w(uint32(3))
	w(uint64(1))
	w(uint64(8))

	str("general.architecture")
	w(uint32(gguf.TypeString))
	str("llama")
	str("llama.context_length")
	w(uint32(gguf.TypeUint32))
	w(ctxLen)
	str("tokenizer.ggml.model")
	w(uint32(gguf.TypeString))
	str("llama")
	str("tokenizer.ggml.tokens")
	w(uint32(gguf.TypeArray))
	w(uint32(gguf.TypeString))
	w(uint64(len(tokens)))
	for _, s := range tokens {
		str(s)
	}
	str("tokenizer.ggml.scores")
	w(uint32(gguf.TypeArray))
	w(uint32(gguf.TypeFloat32))
	w(uint64(len(tokens)))
	for range tokens {
		w(float32(-1))
	}
	str("tokenizer.ggml.token_type")
	w(uint32(gguf.TypeArray))
	w(uint32(gguf.TypeInt32))
	w(uint64(len(tokens)))
	for i := range tokens {
		typ := int32(1)
		if i == 1 || i == 2 {
			typ = 3
		}
		w(typ)
	}
	str("tokenizer.ggml.bos_token_id")
	w(uint32(gguf.TypeUint32))
	w(uint32(1))
	str("tokenizer.ggml.eos_token_id")
	w(uint32(gguf.TypeUint32))
	w(uint32(2))

	str("token_embd.weight")
	w(uint32(2))
	w(uint64(16))
	w(uint64(len(tokens)))
	w(uint32(2))
	w(uint64(0))

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestWriteInspect(t *testing.T) {
	t.Parallel()

	path := writeTinyGGUF(t, "llama-2-7b-chat.ggmlv3.q4_0.bin", 64)
	f, err := gguf.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var out bytes.Buffer
	writeInspect(&out, f, true, -1)
	got := out.String()
	for _, want := range []string{
		"GGUF v3 | tensors=1 | kv=8",
		"params=112",
		"Variant: 7b-chat",
		"llama.context_length:",
		fmt.Sprintf("  %-36s %d", "tokens:", 7),
		fmt.Sprintf("  %-36s %d %q", "eos:", 2, "</s>"),
		"tokenizer.ggml.tokens = [<unk> <s> </s> ▁ a b ▁a]",
		"token_embd.weight",
		"dims=[16x7]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	out.Reset()
	writeInspect(&out, f, false, 0)
	if strings.Contains(out.String(), "Tensors:") || strings.Contains(out.String(), "All metadata:") {
		t.Fatalf("tensors and kv should be skipped:\n%s", out.String())
	}
}

func TestLoadStackFromModelFile(t *testing.T) {
	path := writeTinyGGUF(t, "tiny.gguf", 64)
	base := []string{"--model", path, "--sample-len", "8"}

	runWithFlags(t, base, func(c *cli.Command) {
		st, err := loadStack(logger.Discard(), applyConfig(c, Config{}))
		if err != nil {
			t.Fatalf("loadStack: %v", err)
		}
		if st.tok.VocabSize() != 7 || st.modelCfg.Vocab != 7 {
			t.Fatalf("vocab from model file: tok=%d model=%d", st.tok.VocabSize(), st.modelCfg.Vocab)
		}
		if st.genCfg.MaxContextTokens != 64 || st.modelCfg.MaxSeqLen != 64 {
			t.Fatalf("context from model file: gen=%d model=%d", st.genCfg.MaxContextTokens, st.modelCfg.MaxSeqLen)
		}
		if st.tok.EOSTokenID() != 2 {
			t.Fatalf("eos = %d", st.tok.EOSTokenID())
		}
	})

	runWithFlags(t, append(base, "--max-context", "32"), func(c *cli.Command) {
		st, err := loadStack(logger.Discard(), applyConfig(c, Config{}))
		if err != nil {
			t.Fatalf("loadStack: %v", err)
		}
		if st.modelCfg.MaxSeqLen != 32 {
			t.Fatalf("--max-context should override the file, got %d", st.modelCfg.MaxSeqLen)
		}
	})

	runWithFlags(t, []string{"--model", filepath.Join(t.TempDir(), "missing.gguf")}, func(c *cli.Command) {
		if _, err := loadStack(logger.Discard(), applyConfig(c, Config{})); err == nil {
			t.Fatal("expected error for a missing model file")
		}
	})
}

func TestVariantForFile(t *testing.T) {
	t.Parallel()

	if tag, ok := variantForFile("/models/mistral-7b-instruct-v0.1.Q4_K_S.gguf"); !ok || tag != "7b-mistral-instruct" {
		t.Fatalf("variantForFile = %q %v", tag, ok)
	}
	if _, ok := variantForFile("other.gguf"); ok {
		t.Fatal("unknown file should not match")
	}
}
