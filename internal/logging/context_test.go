package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := GetRequestID(ctx); ok {
		t.Fatalf("expected no request id in bare context")
	}

	ctx = WithRequestID(ctx, "req-1")
	v, ok := GetRequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", v)
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")
	v, ok := GetCorrelationID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "corr-1", v)
}
