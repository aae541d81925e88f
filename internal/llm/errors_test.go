package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"status 429", errors.New("API returned unexpected status code: 429: Rate limit reached"), KindRateLimited},
		{"googleapi error", errors.New("googleapi: Error 429: Resource has been exhausted"), KindRateLimited},
		{"grpc resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = quota"), KindRateLimited},
		{"status 401", errors.New("status code: 401: invalid api key"), KindRejected},
		{"http 404", errors.New("HTTP/1.1 404 model not found"), KindRejected},
		{"status 504", errors.New("status code 504"), KindTimeout},
		{"status 503", errors.New("status code: 503 upstream overloaded"), KindUnavailable},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"refused on port 4290", errors.New("dial tcp 10.0.0.7:4290: connect: connection refused"), KindUnavailable},
		{"refused on port 4000", errors.New("Post \"http://ollama:4000/api/chat\": dial tcp 172.18.0.4:4000: connect: connection refused"), KindUnavailable},
		{"dns", &net.DNSError{Err: "no such host", Name: "api429.example.com"}, KindUnavailable},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindUnavailable},
		{"request id digits", errors.New("upstream hiccup (request id req_4291_400)"), KindUnavailable},
		{"unknown", errors.New("something odd happened"), KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}
}

func TestClassify_PassesThroughClassifiedErrors(t *testing.T) {
	pe := &ProviderError{Kind: KindRejected, Err: errors.New("nope")}
	assert.Same(t, pe, Classify(fmt.Errorf("wrapped: %w", pe)))
	assert.Nil(t, Classify(nil))
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(&ProviderError{Kind: KindTimeout}))
	assert.True(t, Transient(&ProviderError{Kind: KindRateLimited}))
	assert.False(t, Transient(&ProviderError{Kind: KindUnavailable}))
	assert.False(t, Transient(&ProviderError{Kind: KindRejected}))
	assert.False(t, Transient(errors.New("plain")))
}
