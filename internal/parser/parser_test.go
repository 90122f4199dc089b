package parser

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantErr    bool
		wantAmount any
		wantNote   string
	}{
		{"plain", `{"amount":25,"category":"餐饮","type":"expense","note":"午餐汉堡","emoji":"🍔"}`, false, 25.0, "午餐汉堡"},
		{"fenced", "```json\n{\"amount\":12.5,\"note\":\"咖啡\"}\n```", false, 12.5, "咖啡"},
		{"string amount", `{"amount":"80","note":"看电影"}`, false, 80.0, "看电影"},
		{"negative amount dropped", `{"amount":-3,"note":"x"}`, false, nil, "x"},
		{"null amount", `{"amount":null,"note":" "}`, false, nil, ""},
		{"empty", "  ", true, nil, ""},
		{"not json", "好的！", true, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := deref(res.Amount); got != tt.wantAmount {
				t.Errorf("amount = %v, want %v", got, tt.wantAmount)
			}
			if got := derefString(res.Note); got != tt.wantNote {
				t.Errorf("note = %q, want %q", got, tt.wantNote)
			}
		})
	}
}

func TestPrompt_CarriesCategoriesAndDate(t *testing.T) {
	p := Prompt("午餐25", "2024-05-10")
	for _, want := range []string{"午餐25", "餐饮", "其他", "2024-05-10", `"花了"`, `"入账"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

type parserFunc func(ctx context.Context, text string) (*Result, error)

func (f parserFunc) Parse(ctx context.Context, text string) (*Result, error) { return f(ctx, text) }

func newTestResilient(next Parser, timeout time.Duration, retries int) *Resilient {
	r := NewResilient(next, timeout, retries, nil)
	r.delay = time.Millisecond
	return r
}

func TestResilient_RetriesOnce(t *testing.T) {
	var calls int32
	amount := 25.0
	next := parserFunc(func(context.Context, string) (*Result, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("503 unavailable")
		}
		return &Result{Amount: &amount}, nil
	})

	res, err := newTestResilient(next, time.Second, 1).Parse(context.Background(), "午餐25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *res.Amount != 25 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("unexpected result %v after %d calls", *res.Amount, calls)
	}
}

func TestResilient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	boom := errors.New("boom")
	next := parserFunc(func(context.Context, string) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})

	_, err := newTestResilient(next, time.Second, 1).Parse(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestResilient_TimesOutEachAttempt(t *testing.T) {
	var calls int32
	next := parserFunc(func(ctx context.Context, _ string) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	_, err := newTestResilient(next, 20*time.Millisecond, 1).Parse(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("timeouts should be retried, got %d attempts", calls)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("attempt timeout not applied")
	}
}

func TestResilient_DoesNotRetryEmptyInputOrCancellation(t *testing.T) {
	var calls int32
	next := parserFunc(func(ctx context.Context, text string) (*Result, error) {
		atomic.AddInt32(&calls, 1)
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyInput
		}
		return nil, errors.New("unreachable upstream")
	})
	r := newTestResilient(next, time.Second, 3)

	if _, err := r.Parse(context.Background(), " "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("empty input retried: %d calls", calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	atomic.StoreInt32(&calls, 0)
	if _, err := r.Parse(ctx, "午餐"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if calls > 1 {
		t.Fatalf("cancelled call retried: %d calls", calls)
	}
}

func TestResilient_NilResultIsAnError(t *testing.T) {
	next := parserFunc(func(context.Context, string) (*Result, error) { return nil, nil })
	if _, err := newTestResilient(next, time.Second, 0).Parse(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
