package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormatIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentParser, Output: &buf})

	logger.Info("Parsed input", FieldParser, "rules")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentParser || rec[FieldParser] != "rules" || rec["msg"] != "Parsed input" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record should be filtered, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Output: &buf})
	child := base.WithComponent(ComponentGoal)
	if child.Component() != ComponentGoal || base.Component() != ComponentApp {
		t.Fatalf("unexpected components %q %q", child.Component(), base.Component())
	}
	child.Info("x")
	if strings.Count(buf.String(), "component=") != 1 {
		t.Fatalf("component should appear once: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	logger := New(Config{Output: &bytes.Buffer{}, Component: ComponentHTTP}).With(FieldRequestID, "req_1")
	ctx := context.WithValue(context.Background(), LoggerContextKey, logger)

	if FromContext(ctx) != logger {
		t.Fatal("expected the stored request logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	ctx := context.Background()

	sl.LogTransactionCreated(ctx, "t1", 25, "餐饮", "expense", "2024-05-10")
	sl.LogGoalDeposit(ctx, "g1", 100, false)
	sl.LogError(ctx, "Persist failed", errors.New("disk full"), ComponentStorage, OpPersist,
		NewFields().WithErrorType(ErrorTypeDatabase).With(FieldKey, "qmoney_goals"))

	r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	sl.LogHTTPEnd(ctx, r, http.StatusInternalServerError, 12, "10.0.0.1")

	out := buf.String()
	for _, want := range []string{"transaction_id=t1", "goal_id=g1", "error=\"disk full\"", "error_type=database_error", "key=qmoney_goals", "level=ERROR", "status_code=500"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
