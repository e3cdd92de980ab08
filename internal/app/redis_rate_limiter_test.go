package app

import (
	"context"
	"testing"
	"time"
)

func TestConsumeRateLimitDisabledConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		limiter *RedisRateLimiter
		scope   string
		subject string
		limit   int
		window  time.Duration
	}{
		{name: "nil limiter", limiter: nil, scope: "transfer", subject: "s-1", limit: 5, window: time.Minute},
		{name: "nil client", limiter: &RedisRateLimiter{}, scope: "transfer", subject: "s-1", limit: 5, window: time.Minute},
		{name: "zero limit", limiter: &RedisRateLimiter{}, scope: "transfer", subject: "s-1", limit: 0, window: time.Minute},
		{name: "blank scope", limiter: &RedisRateLimiter{}, scope: "  ", subject: "s-1", limit: 5, window: time.Minute},
		{name: "blank subject", limiter: &RedisRateLimiter{}, scope: "transfer", subject: "", limit: 5, window: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := tt.limiter.ConsumeRateLimit(context.Background(), tt.scope, tt.subject, tt.limit, tt.window)
			if err != nil {
				t.Fatalf("disabled configuration must not error, got %v", err)
			}
			if decision.Count != 0 || decision.RetryAfter != 0 {
				t.Fatalf("disabled configuration must report an open window, got %+v", decision)
			}
		})
	}
}

func TestDecodeCountWindow(t *testing.T) {
	tests := []struct {
		name           string
		raw            interface{}
		wantCount      int
		wantRetryAfter time.Duration
		wantErr        bool
	}{
		{
			name:           "whole seconds remaining",
			raw:            []interface{}{int64(3), int64(30000)},
			wantCount:      3,
			wantRetryAfter: 30 * time.Second,
		},
		{
			name:           "partial second rounds up",
			raw:            []interface{}{int64(1), int64(1200)},
			wantCount:      1,
			wantRetryAfter: 2 * time.Second,
		},
		{
			name:           "lost expiry falls back to the window",
			raw:            []interface{}{int64(7), int64(-1)},
			wantCount:      7,
			wantRetryAfter: time.Minute,
		},
		{
			name:           "never reports less than a second",
			raw:            []interface{}{int64(2), int64(40)},
			wantCount:      2,
			wantRetryAfter: time.Second,
		},
		{name: "wrong shape", raw: "not-an-array", wantErr: true},
		{name: "wrong arity", raw: []interface{}{int64(1)}, wantErr: true},
		{name: "wrong count type", raw: []interface{}{"1", int64(1000)}, wantErr: true},
		{name: "wrong ttl type", raw: []interface{}{int64(1), "1000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := decodeCountWindow(tt.raw, 60000)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected a decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected decode to succeed, got %v", err)
			}
			if decision.Count != tt.wantCount {
				t.Fatalf("expected count %d, got %d", tt.wantCount, decision.Count)
			}
			if decision.RetryAfter != tt.wantRetryAfter {
				t.Fatalf("expected retry-after %s, got %s", tt.wantRetryAfter, decision.RetryAfter)
			}
		})
	}
}
