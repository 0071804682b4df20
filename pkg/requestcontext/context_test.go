package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsWhenUnset(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "system", Actor(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, CorrelationID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestValuesRoundTrip(t *testing.T) {
	pinned := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ctx := WithActor(context.Background(), "ops@bank")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithCorrelationID(ctx, "PAY-1")
	ctx = WithTime(ctx, pinned)

	assert.Equal(t, "ops@bank", Actor(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "PAY-1", CorrelationID(ctx))
	assert.Equal(t, pinned, Now(ctx))
}

func TestEmptyActorFallsBack(t *testing.T) {
	assert.Equal(t, "system", Actor(WithActor(context.Background(), "")))
}
