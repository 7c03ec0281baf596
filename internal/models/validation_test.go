package models

import (
	"strings"
	"testing"
)

func TestSignupRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SignupRequest
		wantErr string
	}{
		{"valid", SignupRequest{Email: "a@x.com", Password: "secret1", Name: "Alice"}, ""},
		{"valid without name", SignupRequest{Email: "a@x.com", Password: "secret1"}, ""},
		{"missing email", SignupRequest{Password: "secret1"}, "email"},
		{"bad email", SignupRequest{Email: "not-an-email", Password: "secret1"}, "Invalid email format"},
		{"missing password", SignupRequest{Email: "a@x.com"}, "password"},
		{"short password", SignupRequest{Email: "a@x.com", Password: "12345"}, "Password must be at least 6 characters long"},
		{"short name", SignupRequest{Email: "a@x.com", Password: "secret1", Name: "A"}, "Name must be at least 2 characters long"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error mentioning %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   LoginRequest
		valid bool
	}{
		{"valid", LoginRequest{Email: "a@x.com", Password: "anything"}, true},
		{"missing email", LoginRequest{Password: "anything"}, false},
		{"bad email", LoginRequest{Email: "oops", Password: "anything"}, false},
		{"missing password", LoginRequest{Email: "a@x.com"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.valid && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSendMessageRequestValidate(t *testing.T) {
	if err := (SendMessageRequest{Message: "hello"}).Validate(); err != nil {
		t.Errorf("Expected valid, got %v", err)
	}
	if err := (SendMessageRequest{}).Validate(); err == nil {
		t.Error("Expected validation error for empty message")
	}
	// chatId is optional here: the /send handler enforces its presence.
	if err := (SendMessageRequest{Message: "hello", ChatID: "anything"}).Validate(); err != nil {
		t.Errorf("Expected chatId to be unvalidated, got %v", err)
	}
}
