package validation

import (
	"net/url"
	"strings"
)

// ValidateURL checks an optional link such as a team logo or a sponsor
// website. Empty values pass.
func ValidateURL(raw, field string, requireHTTPS bool) *FieldError {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return &FieldError{Field: field, Message: "invalid URL format"}
	}
	if parsed.Scheme == "" {
		return &FieldError{Field: field, Message: "URL must include a scheme (http:// or https://)"}
	}
	if parsed.Host == "" {
		return &FieldError{Field: field, Message: "URL must include a host"}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &FieldError{Field: field, Message: "URL scheme must be http or https"}
	}
	if requireHTTPS && scheme != "https" {
		return &FieldError{Field: field, Message: "URL must use HTTPS in production"}
	}
	return nil
}
