package wandkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type valueKey struct{}

func TestDetachContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(
		context.WithValue(context.Background(), valueKey{}, "v"), time.Nanosecond)
	defer cancel()
	assert.False(t, IsDetached(ctx))
	time.Sleep(time.Millisecond)
	assert.Equal(t, context.DeadlineExceeded, ctx.Err())

	ctx = DetachContext(ctx)
	assert.True(t, IsDetached(ctx))
	assert.NoError(t, ctx.Err())
	assert.Equal(t, "v", ctx.Value(valueKey{}))
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx, cancel2 := context.WithTimeout(ctx, time.Millisecond*5)
	defer cancel2()
	assert.NoError(t, ctx.Err())
	assert.True(t, IsDetached(ctx))
	time.Sleep(time.Millisecond * 10)
	assert.Equal(t, context.DeadlineExceeded, ctx.Err())
}
