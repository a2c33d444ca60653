package telemetry

import (
	"io"
	"log/slog"
	"strings"

	"github.com/taskpilot/taskpilot/api/internal/core/utils"
)

// sensitiveKeys are attribute names whose string values are masked before
// they reach the log sink.
var sensitiveKeys = map[string]struct{}{
	"api_key":       {},
	"apikey":        {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"secret":        {},
	"client_secret": {},
	"password":      {},
	"authorization": {},
	"plaintext":     {},
	"value":         {},
}

// NewLogger builds the JSON logger used across the API.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: RedactSecrets,
	}))
}

// RedactSecrets is a slog ReplaceAttr hook that masks secret-looking attributes.
func RedactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; !ok {
		return a
	}
	if a.Value.Kind() != slog.KindString {
		return slog.String(a.Key, utils.MaskPlaceholder)
	}
	return slog.String(a.Key, utils.Mask(a.Value.String()))
}
