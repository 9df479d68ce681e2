// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"within range", 5, 1, 10, false},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"below min", 0, 1, 10, true},
		{"above max", 11, 1, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("testRange", tt.value, tt.min, tt.max)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Bounds(t *testing.T) {
	v := New()
	v.Positive("ok", 1)
	v.Ordered("ok", 2, 2)
	v.PositiveDuration("ok", time.Second)
	v.NonNegativeDuration("ok", 0)
	v.Fraction("ok", 0.5)
	v.OneOf("ok", "grpc", "grpc", "http")
	if !v.IsValid() {
		t.Fatalf("unexpected errors: %v", v.Err())
	}

	v.Positive("queue", 0)
	v.Ordered("threads", 5, 2)
	v.PositiveDuration("scan", 0)
	v.NonNegativeDuration("idle", -time.Second)
	v.Fraction("sampling", 1.5)
	v.OneOf("exporter", "zipkin", "grpc", "http")
	if got := len(v.Errors()); got != 6 {
		t.Fatalf("expected 6 errors, got %d: %v", got, v.Err())
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8089", false},
		{"127.0.0.1:0", false},
		{"localhost:9000", false},
		{"[::1]:8089", false},
		{"8089", true},
		{"example.com:80", true},
		{":99999", true},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("listen", tt.addr)
		if tt.wantErr == v.IsValid() {
			t.Errorf("ListenAddr(%q) valid=%v, wantErr=%v", tt.addr, v.IsValid(), tt.wantErr)
		}
	}
}

func TestValidationError_Aggregates(t *testing.T) {
	v := New()
	if v.Err() != nil {
		t.Fatal("empty validator must not produce an error")
	}
	v.AddError("a", "first", nil)
	v.AddError("b", "second", nil)

	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(verr.Errors()))
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected joined message, got %q", err.Error())
	}
}
