package api

import "github.com/samcharles93/cinder/internal/inference"

// CreateSessionRequest opens a session. Generation options left out keep
// the server defaults.
type CreateSessionRequest struct {
	Mode   string `json:"mode,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	inference.GenerationOptions
}

type CreateSessionResponse struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Mode   string `json:"mode"`
}

// TurnRequest carries the raw input of one turn. It is ignored by one-shot
// sessions.
type TurnRequest struct {
	Input string `json:"input"`
}

type TurnResponse struct {
	SessionID    string    `json:"session_id"`
	Turn         int       `json:"turn"`
	Tokens       []int     `json:"tokens"`
	Text         string    `json:"text"`
	PromptTokens int       `json:"prompt_tokens"`
	Truncated    int       `json:"truncated"`
	StopReason   string    `json:"stop_reason"`
	Stats        TurnStats `json:"stats"`
	Closed       bool      `json:"closed"`
}

type TurnStats struct {
	PromptTokens    int     `json:"prompt_tokens"`
	PromptTPS       float64 `json:"prompt_tokens_per_second"`
	GeneratedTokens int     `json:"generated_tokens"`
	GenerationTPS   float64 `json:"generated_tokens_per_second"`
}

type SessionResponse struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Mode          string `json:"mode"`
	Turns         int    `json:"turns"`
	HistoryTokens int    `json:"history_tokens"`
	Closed        bool   `json:"closed"`
}

type DeleteSessionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

func turnStats(s inference.Stats) TurnStats {
	return TurnStats{
		PromptTokens:    s.PromptTokens,
		PromptTPS:       s.PromptTPS(),
		GeneratedTokens: s.GeneratedTokens,
		GenerationTPS:   s.GenerationTPS(),
	}
}
