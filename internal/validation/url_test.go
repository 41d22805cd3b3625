package validation

import (
	"strings"
	"testing"
)

func TestValidateURL_ValidURLs(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		requireHTTPS bool
	}{
		{"HTTP URL", "http://example.com/logo.png", false},
		{"HTTPS URL", "https://example.com", false},
		{"HTTPS URL with requireHTTPS", "https://cdn.example.com/crest.svg", true},
		{"URL with port", "https://example.com:8080/path", false},
		{"Empty URL (allowed)", "", false},
		{"Whitespace only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateURL(tt.url, "logo", tt.requireHTTPS); err != nil {
				t.Errorf("ValidateURL(%q, requireHTTPS=%v) returned error: %v", tt.url, tt.requireHTTPS, err)
			}
		})
	}
}

func TestValidateURL_InvalidURLs(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		requireHTTPS  bool
		expectedError string
	}{
		{"No scheme", "example.com", false, "must include a scheme"},
		{"HTTP when HTTPS required", "http://example.com", true, "must use HTTPS"},
		{"Invalid scheme", "ftp://example.com", false, "scheme must be http or https"},
		{"No host", "https://", false, "must include a host"},
		{"Malformed URL", "ht!tp://example.com", false, "invalid URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, "sponsors.website", tt.requireHTTPS)
			if err == nil {
				t.Fatalf("ValidateURL(%q, requireHTTPS=%v) should return error", tt.url, tt.requireHTTPS)
			}
			if err.Field != "sponsors.website" {
				t.Errorf("field = %q, want sponsors.website", err.Field)
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("error message %q should contain %q", err.Error(), tt.expectedError)
			}
		})
	}
}
