package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/logger"
	"github.com/urfave/cli/v3"
)

func TestResolveMode(t *testing.T) {
	cases := []struct {
		prompt string
		mode   inference.Mode
		text   string
	}{
		{"", inference.ModeOneShot, defaultPrompt},
		{"interactive", inference.ModeInteractive, ""},
		{" Chat ", inference.ModeChat, ""},
		{"tell me a story", inference.ModeOneShot, "tell me a story"},
		{"chat with me", inference.ModeOneShot, "chat with me"},
	}
	for _, tc := range cases {
		mode, text := resolveMode(tc.prompt)
		if mode != tc.mode || text != tc.text {
			t.Errorf("resolveMode(%q) = %v %q, want %v %q", tc.prompt, mode, text, tc.mode, tc.text)
		}
	}
}

// testStack builds the default stack with a small context and greedy
// sampling.
func testStack(t *testing.T, args ...string) stack {
	t.Helper()
	var st stack
	base := []string{"--max-context", "128", "--sample-len", "8", "--temperature", "0"}
	runWithFlags(t, append(base, args...), func(c *cli.Command) {
		var err error
		st, err = loadStack(logger.Discard(), applyConfig(c, Config{}))
		if err != nil {
			t.Fatalf("loadStack: %v", err)
		}
	})
	return st
}

func TestLoadStack(t *testing.T) {
	st := testStack(t)
	if st.variant.Tag != "7b-chat" || st.genCfg.InstructionTuned {
		t.Fatalf("default variant = %+v instruct=%v", st.variant, st.genCfg.InstructionTuned)
	}
	if st.modelCfg.MaxSeqLen != 128 || st.genCfg.MaxContextTokens != 128 {
		t.Fatalf("max context not propagated: model=%d gen=%d", st.modelCfg.MaxSeqLen, st.genCfg.MaxContextTokens)
	}
	if st.modelCfg.Vocab != st.tok.VocabSize() {
		t.Fatalf("model vocab %d != tokenizer vocab %d", st.modelCfg.Vocab, st.tok.VocabSize())
	}
	if st.genCfg.TopP != nil {
		t.Fatalf("top-p should be unset")
	}

	mistral := testStack(t, "--which", "7b-mistral-instruct", "--top-p", "0.5")
	if !mistral.genCfg.InstructionTuned {
		t.Fatal("mistral variants use instruct framing")
	}
	if mistral.genCfg.TopP == nil || *mistral.genCfg.TopP != 0.5 {
		t.Fatalf("top-p = %v", mistral.genCfg.TopP)
	}

	forced := testStack(t, "--which", "7b-mistral", "--instruct=false")
	if forced.genCfg.InstructionTuned {
		t.Fatal("--instruct=false should override the variant")
	}
}

func TestLoadStackRejectsBadSettings(t *testing.T) {
	cases := [][]string{
		{"--which", "nope"},
		{"--max-context", "0"},
		{"--max-context", "20", "--sample-len", "11"},
		{"--top-p", "1.5"},
		{"--tokenizer-json", "/does/not/exist.json"},
	}
	for _, args := range cases {
		runWithFlags(t, args, func(c *cli.Command) {
			if _, err := loadStack(logger.Discard(), applyConfig(c, Config{})); err == nil {
				t.Errorf("loadStack(%v) should fail", args)
			}
		})
	}
}

func TestResolveSeed(t *testing.T) {
	if got := resolveSeed(42); got != 42 {
		t.Fatalf("resolveSeed(42) = %d", got)
	}
	if got := resolveSeed(-1); got == 0 {
		t.Fatal("time-based seed should not be zero")
	}
}

func newTestSession(t *testing.T, st stack, opts inference.SessionOptions) *inference.Session {
	t.Helper()
	model, err := st.newModel()
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	sess, err := inference.NewSession(st.genCfg, model, st.tok, opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return sess
}

func TestRunSessionOneShot(t *testing.T) {
	st := testStack(t)
	var stdout, diag bytes.Buffer
	out := bufio.NewWriter(&stdout)
	sess := newTestSession(t, st, inference.SessionOptions{
		Mode:   inference.ModeOneShot,
		Prompt: "hello",
		Sink:   &inference.WriterSink{Out: out, Diag: &diag, EchoPrompt: true},
	})

	if err := runSession(context.Background(), sess, out, &diag); err != nil {
		t.Fatalf("runSession: %v", err)
	}
	if !sess.Closed() || sess.Turns() != 1 {
		t.Fatalf("closed=%v turns=%d", sess.Closed(), sess.Turns())
	}
	if !strings.HasPrefix(stdout.String(), "hello") || !strings.HasSuffix(stdout.String(), "\n") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.Contains(diag.String(), "prompt tokens processed") {
		t.Fatalf("missing throughput report: %q", diag.String())
	}
}

func TestRunSessionChatFromPipe(t *testing.T) {
	st := testStack(t)
	var stdout, diag bytes.Buffer
	out := bufio.NewWriter(&stdout)
	input := newTerminalInput(strings.NewReader("hi\n\nagain\n/exit\nignored\n"), &stdout, inputPrompt)
	sess := newTestSession(t, st, inference.SessionOptions{
		Mode:  inference.ModeChat,
		Input: input,
		Sink:  &inference.WriterSink{Out: out, Diag: &diag},
	})

	if err := runSession(context.Background(), sess, out, &diag); err != nil {
		t.Fatalf("runSession: %v", err)
	}
	if sess.Turns() != 2 {
		t.Fatalf("turns = %d, want 2", sess.Turns())
	}
	if got := strings.Count(diag.String(), "tokens generated"); got != 2 {
		t.Fatalf("reports = %d, want 2", got)
	}
	if len(sess.History()) == 0 {
		t.Fatal("chat history should be kept")
	}
}

func TestRunSessionTruncatesLongInput(t *testing.T) {
	st := testStack(t, "--max-context", "20", "--sample-len", "4")
	var stdout, diag bytes.Buffer
	out := bufio.NewWriter(&stdout)
	long := strings.Repeat("x", 40)
	input := newTerminalInput(strings.NewReader(long+"\nok\n"), &stdout, inputPrompt)
	sess := newTestSession(t, st, inference.SessionOptions{
		Mode:  inference.ModeInteractive,
		Input: input,
		Sink:  &inference.WriterSink{Out: out, Diag: &diag},
	})

	if err := runSession(context.Background(), sess, out, &diag); err != nil {
		t.Fatalf("runSession: %v", err)
	}
	if sess.Turns() != 2 {
		t.Fatalf("turns = %d, want 2 (long prompt is truncated, not rejected)", sess.Turns())
	}
}

func TestRunSessionCancelled(t *testing.T) {
	st := testStack(t)
	var stdout bytes.Buffer
	out := bufio.NewWriter(&stdout)
	sess := newTestSession(t, st, inference.SessionOptions{
		Mode:  inference.ModeInteractive,
		Input: newTerminalInput(strings.NewReader("never read\n"), &stdout, inputPrompt),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runSession(ctx, sess, out, &bytes.Buffer{}); err != nil {
		t.Fatalf("cancelled session should end cleanly, got %v", err)
	}
	if !sess.Closed() || sess.Turns() != 0 {
		t.Fatalf("closed=%v turns=%d", sess.Closed(), sess.Turns())
	}
}
