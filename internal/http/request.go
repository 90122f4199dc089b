package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 64 << 10

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// intQuery parses an optional integer query parameter within [lo, hi];
// a missing parameter yields def.
func intQuery(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", errBadRequest, name, lo, hi)
	}
	return n, nil
}

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(s string) string {
	return stripControl(strings.TrimSpace(s))
}

// stripControl drops control characters except tab and newlines, leaving
// spaces where they are.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if (r < 32 || r == 0x7f) && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
