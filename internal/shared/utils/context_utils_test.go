package utils

import (
	"context"
	"testing"

	"product-studio/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
)

func TestGetSetContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req1")
	ctx = WithSessionID(ctx, "session1")
	ctx = WithOperation(ctx, "opX")

	reqID, err := GetRequestIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "req1", reqID)

	sessionID, err := GetSessionIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "session1", sessionID)

	assert.Equal(t, "opX", ctx.Value(contextkeys.OperationKey))
}

func TestGetRequestID_Errors(t *testing.T) {
	_, err := GetRequestIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrRequestIDNotFound)

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, 42)
	_, err = GetRequestIDFromContext(ctx)
	assert.ErrorIs(t, err, ErrRequestIDNotString)

	_, err = GetSessionIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrSessionIDNotFound)
}

func TestGetRequestIDOrDefault(t *testing.T) {
	assert.Equal(t, "none", GetRequestIDOrDefault(context.Background(), "none"))
	assert.Equal(t, "r", GetRequestIDOrDefault(WithRequestID(context.Background(), "r"), "none"))
}
