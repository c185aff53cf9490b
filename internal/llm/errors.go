package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrorType classifies provider errors for UI handling
type ErrorType string

const (
	ErrorTypeRateLimit     ErrorType = "rate_limit"     // 429 - too many requests
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded" // usage limit on the account
	ErrorTypeProviderDown  ErrorType = "provider_down"  // 5xx - upstream issue
	ErrorTypeAuth          ErrorType = "auth"           // 401/403 - bad API key
	ErrorTypeBadRequest    ErrorType = "bad_request"    // 400/404/422 - model or payload rejected
	ErrorTypeNetwork       ErrorType = "network"        // no HTTP response at all
	ErrorTypeMalformed     ErrorType = "malformed"      // response body could not be decoded
	ErrorTypeUnknown       ErrorType = "unknown"        // Fallback
)

// maxMessageLen bounds how much of an error body ends up in a message.
const maxMessageLen = 300

// ProviderError is a structured error returned by LLM clients
type ProviderError struct {
	Type       ErrorType      // Classification
	Provider   string         // "openai", "gemini", "ollama"
	Code       string         // HTTP status or API error code
	Message    string         // Human-readable message
	RetryAfter *time.Duration // From the Retry-After header, when present
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s request failed (%s): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// Unwrap allows errors.Is/As to reach the transport error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsProviderError checks if err is a ProviderError and returns it
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// NewProviderError creates a new ProviderError with the given parameters
func NewProviderError(provider string, errType ErrorType, code, message string) *ProviderError {
	return &ProviderError{
		Type:     errType,
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// NetworkError wraps a transport failure (DNS, refused connection, timeout).
func NetworkError(provider string, err error) *ProviderError {
	pe := NewProviderError(provider, ErrorTypeNetwork, "", err.Error())
	pe.Cause = err
	return pe
}

// MalformedError wraps a decoding failure of a successful response.
func MalformedError(provider string, err error) *ProviderError {
	pe := NewProviderError(provider, ErrorTypeMalformed, "", "parse response: "+err.Error())
	pe.Cause = err
	return pe
}

// HTTPError turns a non-2xx response into a ProviderError. JSON bodies are
// mined for the API's own message; HTML pages from gateways are reduced to
// their title.
func HTTPError(provider string, resp *http.Response, body []byte) *ProviderError {
	status := resp.StatusCode
	pe := NewProviderError(provider, classify(status), strconv.Itoa(status), summarizeBody(resp.Header.Get("Content-Type"), body))
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	if status == http.StatusTooManyRequests && strings.Contains(strings.ToLower(pe.Message), "quota") {
		pe.Type = ErrorTypeQuotaExceeded
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			d := time.Duration(secs) * time.Second
			pe.RetryAfter = &d
		}
	}
	return pe
}

func classify(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeAuth
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusPaymentRequired:
		return ErrorTypeQuotaExceeded
	case status >= 500:
		return ErrorTypeProviderDown
	case status >= 400:
		return ErrorTypeBadRequest
	}
	return ErrorTypeUnknown
}

// summarizeBody extracts a readable message from an error response body.
func summarizeBody(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if msg := jsonErrorMessage(trimmed); msg != "" {
		return truncate(msg)
	}

	if strings.Contains(contentType, "text/html") || bytes.HasPrefix(trimmed, []byte("<")) {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed)); err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return truncate(title)
			}
			if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
				return truncate(h1)
			}
			return truncate(strings.Join(strings.Fields(doc.Text()), " "))
		}
	}
	return truncate(string(trimmed))
}

// jsonErrorMessage understands {"error":{"message":...}} (OpenAI, Gemini)
// and {"error":"..."} (Ollama).
func jsonErrorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Error) > 0 {
		var asString string
		if err := json.Unmarshal(envelope.Error, &asString); err == nil {
			return asString
		}
		var asObject struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &asObject); err == nil && asObject.Message != "" {
			return asObject.Message
		}
	}
	return envelope.Message
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen] + "..."
}
