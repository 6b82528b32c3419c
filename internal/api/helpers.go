package api

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// writeError renders err as {"error": {...}} with the status classify
// picks for it.
func writeError(c *echo.Context, err error) error {
	status, body := classify(err)
	return c.JSON(status, map[string]any{"error": body})
}

var errEmptyBody = errors.New("empty request body")

// decodeJSON decodes the whole body into T. An empty body yields the zero
// value and errEmptyBody.
func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	raw, err := io.ReadAll(r)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, errEmptyBody
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
