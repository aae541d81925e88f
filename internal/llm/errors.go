package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindTimeout     Kind = "provider_timeout"
	KindRateLimited Kind = "provider_rate_limited"
	KindUnavailable Kind = "provider_unavailable"
	KindRejected    Kind = "provider_rejected"
)

var (
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrProviderRateLimited = errors.New("provider rate limited")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected request")

	// ErrGenerationFailed matches every *GenerationFailedError.
	ErrGenerationFailed = errors.New("generation failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrProviderTimeout
	case KindRateLimited:
		return ErrProviderRateLimited
	case KindRejected:
		return ErrProviderRejected
	default:
		return ErrProviderUnavailable
	}
}

// ProviderError is a classified failure returned by a model provider.
type ProviderError struct {
	Kind Kind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == e.Kind.sentinel() }

// Transient reports whether the failure may succeed on retry.
func (e *ProviderError) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// Transient reports whether err is a transient provider failure.
func Transient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	return false
}

// GenerationFailedError is returned once the client gives up on a request.
type GenerationFailedError struct {
	Attempts int
	Err      error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

func (e *GenerationFailedError) Is(target error) bool { return target == ErrGenerationFailed }

var (
	rateLimitPhrases = []string{"rate limit", "ratelimit", "too many requests", "resource exhausted", "resource_exhausted", "resourceexhausted", "quota exceeded"}
	timeoutPhrases   = []string{"timeout", "timed out", "deadline exceeded"}
	rejectedPhrases  = []string{
		"bad request", "unauthorized", "forbidden", "invalid api key", "invalid_request", "not found",
		"content policy", "content_filter", "safety", "context length", "maximum context",
	}
	connectionPhrases = []string{
		"connection refused", "connection reset", "no such host", "network is unreachable",
		"broken pipe", "dial tcp", "dial udp",
	}

	// statusCode only matches a code introduced by status, code, error or
	// http so ports and ids never classify an error.
	statusCode = regexp.MustCompile(`(?:status(?:\s+code)?|\bcode|\berror|\bhttp(?:/[0-9.]+)?)\s*[:=]?\s*([1-5][0-9]{2})\b`)
)

// Classify maps a raw provider error onto the failure taxonomy. Errors that
// are already classified pass through unchanged. Connection failures and
// anything unrecognised are treated as the provider being unavailable.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	if connectionFailure(err, msg) {
		return &ProviderError{Kind: KindUnavailable, Err: err}
	}
	if kind, ok := kindForStatus(msg); ok {
		return &ProviderError{Kind: kind, Err: err}
	}

	switch {
	case containsAny(msg, rateLimitPhrases):
		return &ProviderError{Kind: KindRateLimited, Err: err}
	case containsAny(msg, timeoutPhrases):
		return &ProviderError{Kind: KindTimeout, Err: err}
	case containsAny(msg, rejectedPhrases):
		return &ProviderError{Kind: KindRejected, Err: err}
	default:
		return &ProviderError{Kind: KindUnavailable, Err: err}
	}
}

func connectionFailure(err error, msg string) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	}
	return containsAny(msg, connectionPhrases)
}

// kindForStatus classifies by the first HTTP status code in msg.
func kindForStatus(msg string) (Kind, bool) {
	m := statusCode.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	code, _ := strconv.Atoi(m[1])
	switch {
	case code == 429:
		return KindRateLimited, true
	case code == 408 || code == 504:
		return KindTimeout, true
	case code >= 400 && code < 500:
		return KindRejected, true
	case code >= 500:
		return KindUnavailable, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
