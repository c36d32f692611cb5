package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

// TestAPIErrorUnwrap verifies that status codes map onto the sentinel errors.
//
// TestAPIErrorUnwrap 验证状态码能映射到哨兵错误。
func TestAPIErrorUnwrap(t *testing.T) {
	notFound := fmt.Errorf("get product: %w", NewAPIError("get", 404, ""))
	if !IsNotFound(notFound) {
		t.Error("Expected a wrapped 404 to match ErrNotFound")
	}

	unauthorized := NewAPIError("create", 401, "token expired")
	if !IsUnauthenticated(unauthorized) {
		t.Error("Expected a 401 to match ErrUnauthenticated")
	}

	transport := NewTransportError("list page", io.ErrUnexpectedEOF)
	if !errors.Is(transport, io.ErrUnexpectedEOF) {
		t.Error("Expected transport error to unwrap to the cause")
	}
	if IsNotFound(transport) {
		t.Error("Transport error must not match ErrNotFound")
	}
}

// TestIsRetryable checks the retry classification.
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewTransportError("op", io.EOF), true},
		{NewAPIError("op", 500, ""), true},
		{NewAPIError("op", 503, ""), true},
		{NewAPIError("op", 429, ""), true},
		{NewAPIError("op", 400, "bad"), false},
		{NewAPIError("op", 404, ""), false},
		{ErrUnauthenticated, false},
		{nil, false},
	}

	for i, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("case %d: IsRetryable(%v) = %v, want %v", i, tt.err, got, tt.want)
		}
	}
}

// TestUserMessage checks the text surfaced in notifications.
func TestUserMessage(t *testing.T) {
	if got := UserMessage(NewAPIError("create", 400, "name is required")); got != "name is required" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := UserMessage(NewAPIError("create", 502, "")); got != "Bad Gateway" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := UserMessage(NewTransportError("create", io.EOF)); got != "network error, please try again" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := UserMessage(ErrUnauthenticated); got != "please log in to manage products" {
		t.Errorf("Unexpected message %q", got)
	}
	if UserMessage(nil) != "" {
		t.Error("Expected empty message for nil error")
	}
}
