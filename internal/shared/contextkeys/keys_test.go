package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "product-studio context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-456")
	ctx = context.WithValue(ctx, SessionIDKey, "session-1")
	ctx = context.WithValue(ctx, OperationKey, "operation-save")

	assert.Equal(t, "req-456", ctx.Value(RequestIDKey))
	assert.Equal(t, "session-1", ctx.Value(SessionIDKey))
	assert.Equal(t, "operation-save", ctx.Value(OperationKey))
}

func TestContextKeys_Distinct(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req")
	assert.Nil(t, ctx.Value(SessionIDKey))
	assert.Nil(t, ctx.Value(contextKey("other")))
}
