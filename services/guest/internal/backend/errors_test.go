package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "unreachable", err: &APIError{Err: errors.New("dial tcp")}, want: "Server not reachable"},
		{name: "unauthorized", err: &APIError{Status: http.StatusUnauthorized}, want: "Unauthorized"},
		{name: "forbidden", err: &APIError{Status: http.StatusForbidden}, want: "Forbidden"},
		{name: "notFound", err: &APIError{Status: http.StatusNotFound, Message: "no table"}, want: "Item not found"},
		{name: "remoteMessage", err: &APIError{Status: http.StatusConflict, Message: "Table is taken"}, want: "Table is taken"},
		{name: "noMessage", err: &APIError{Status: http.StatusInternalServerError}, want: "An unexpected error occurred"},
		{name: "wrapped", err: fmt.Errorf("start session: %w", &APIError{Status: http.StatusForbidden}), want: "Forbidden"},
		{name: "foreign", err: errors.New("boom"), want: "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("wrap: %w", &APIError{Status: http.StatusNotFound})) {
		t.Error("IsNotFound() = false for wrapped 404")
	}
	if IsNotFound(&APIError{Status: http.StatusBadRequest}) {
		t.Error("IsNotFound() = true for 400")
	}
}

func TestIsUncertain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transport", err: &APIError{Err: errors.New("connection reset")}, want: true},
		{name: "deadline", err: &APIError{Err: fmt.Errorf("post: %w", context.DeadlineExceeded)}, want: true},
		{name: "bareDeadline", err: context.DeadlineExceeded, want: true},
		{name: "notConfigured", err: &APIError{Message: "backend client not configured"}, want: false},
		{name: "rejected", err: &APIError{Status: http.StatusBadRequest, Message: "bad item"}, want: false},
		{name: "serverError", err: &APIError{Status: http.StatusInternalServerError}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUncertain(tt.err); got != tt.want {
				t.Errorf("IsUncertain() = %v, want %v", got, tt.want)
			}
		})
	}
}
