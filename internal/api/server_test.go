package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/cinder/internal/inference"
	"github.com/samcharles93/cinder/internal/tokenizer"
)

// scriptModel emits the same token sequence at the start of every turn.
type scriptModel struct {
	ids  []int
	step int
	fail bool
}

func (m *scriptModel) Forward(tokens []int, offset int) ([]float32, error) {
	if offset == 0 {
		m.step = 0
	}
	if m.fail && m.step > 0 {
		return nil, errors.New("device lost")
	}
	v := make([]float32, 400)
	v[m.ids[min(m.step, len(m.ids)-1)]] = 1
	m.step++
	return v, nil
}

// pickyTokenizer refuses any input containing "bad".
type pickyTokenizer struct {
	*tokenizer.HF
}

func (t pickyTokenizer) Encode(text string) ([]int, []string, error) {
	if strings.Contains(text, "bad") {
		return nil, nil, errors.New("refused")
	}
	return t.HF.Encode(text)
}

func charID(t *testing.T, tok *tokenizer.HF, s string) int {
	t.Helper()
	id, ok := tok.TokenID(s)
	if !ok {
		t.Fatalf("no token %q", s)
	}
	return id
}

func newTestEcho(t *testing.T, failing bool) *echo.Echo {
	t.Helper()
	tok := tokenizer.NewChar()
	ids := []int{charID(t, tok, "o"), charID(t, tok, "k"), tokenizer.CharEOSID}

	defaults := inference.DefaultGenerationConfig(512)
	defaults.SampleLength = 32
	defaults.Temperature = 0
	server, err := NewServer(nil, Backend{
		NewModel: func() (inference.Model, error) {
			return &scriptModel{ids: ids, fail: failing}, nil
		},
		Tokenizer: pickyTokenizer{HF: tok},
		Defaults:  defaults,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func createSession(t *testing.T, e *echo.Echo, body string) string {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/v1/sessions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: got %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[CreateSessionResponse](t, rec)
	if created.ID == "" {
		t.Fatalf("expected session id")
	}
	return created.ID
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, false)
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestChatSessionLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, false)
	id := createSession(t, e, `{"mode":"chat"}`)
	path := "/v1/sessions/" + id

	first := doJSON(t, e, http.MethodPost, path+"/turns", `{"input":"hi"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("turn 1: %d %s", first.Code, first.Body.String())
	}
	turn := decodeBody[TurnResponse](t, first)
	if turn.Text != "ok" || turn.StopReason != "eos" || turn.Turn != 1 {
		t.Fatalf("turn 1 = %+v", turn)
	}
	if len(turn.Tokens) != 3 || turn.Tokens[2] != tokenizer.CharEOSID {
		t.Fatalf("tokens = %v", turn.Tokens)
	}
	// <s> h i
	if turn.PromptTokens != 3 {
		t.Fatalf("prompt tokens = %d, want 3", turn.PromptTokens)
	}

	second := doJSON(t, e, http.MethodPost, path+"/turns", `{"input":"yo"}`)
	if second.Code != http.StatusOK {
		t.Fatalf("turn 2: %d %s", second.Code, second.Body.String())
	}
	// previous 3 fed + 3 generated + <s> y o
	if got := decodeBody[TurnResponse](t, second).PromptTokens; got != 9 {
		t.Fatalf("turn 2 prompt tokens = %d, want 9", got)
	}

	info := decodeBody[SessionResponse](t, doJSON(t, e, http.MethodGet, path, ""))
	if info.Turns != 2 || info.HistoryTokens != 12 || info.Closed || info.Mode != "chat" {
		t.Fatalf("session = %+v", info)
	}

	if rec := doJSON(t, e, http.MethodDelete, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodDelete, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
}

func TestOneShotSessionClosesAfterTurn(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, false)
	if rec := doJSON(t, e, http.MethodPost, "/v1/sessions", `{"mode":"oneshot"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("oneshot without prompt: %d", rec.Code)
	}

	id := createSession(t, e, `{"mode":"oneshot","prompt":"tell me"}`)
	path := "/v1/sessions/" + id + "/turns"
	rec := doJSON(t, e, http.MethodPost, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("turn: %d %s", rec.Code, rec.Body.String())
	}
	if !decodeBody[TurnResponse](t, rec).Closed {
		t.Fatalf("oneshot session should report closed")
	}
	if rec := doJSON(t, e, http.MethodPost, path, `{"input":"again"}`); rec.Code != http.StatusConflict {
		t.Fatalf("second turn: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateSessionRejectsBadRequests(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, false)
	cases := map[string]string{
		"bad json":             `{`,
		"unknown mode":         `{"mode":"debate"}`,
		"negative temperature": `{"temperature":-1}`,
		"top-p out of range":   `{"top_p":1.5}`,
		"sample length":        `{"sample_len":0}`,
		"penalty below one":    `{"repeat_penalty":0.5}`,
	}
	for name, body := range cases {
		rec := doJSON(t, e, http.MethodPost, "/v1/sessions", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d body=%s", name, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "invalid_request_error") {
			t.Fatalf("%s: body=%s", name, rec.Body.String())
		}
	}
}

func TestTurnErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, false)
	if rec := doJSON(t, e, http.MethodPost, "/v1/sessions/nope/turns", `{"input":"x"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session: %d", rec.Code)
	}

	id := createSession(t, e, `{"mode":"interactive"}`)
	path := "/v1/sessions/" + id + "/turns"
	if rec := doJSON(t, e, http.MethodPost, path, `{"input":"a bad line"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("encoding failure: %d %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, e, http.MethodPost, path, `{"input":"fine"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("turn after encoding failure: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[TurnResponse](t, rec).Turn; got != 1 {
		t.Fatalf("turn = %d, want 1", got)
	}
}

func TestForwardFailureIsServerError(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, true)
	id := createSession(t, e, `{"mode":"chat"}`)
	rec := doJSON(t, e, http.MethodPost, "/v1/sessions/"+id+"/turns", `{"input":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "server_error") {
		t.Fatalf("body=%s", rec.Body.String())
	}
	info := decodeBody[SessionResponse](t, doJSON(t, e, http.MethodGet, "/v1/sessions/"+id, ""))
	if info.Closed || info.Turns != 0 {
		t.Fatalf("session after forward failure = %+v", info)
	}
}

func TestNewServerValidatesBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(nil, Backend{}); err == nil {
		t.Fatalf("expected error for empty backend")
	}
}
