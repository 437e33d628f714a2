package wasmhost

import (
	"testing"

	"github.com/cshum/wandkit/internal/testimage"
	"github.com/cshum/wandkit/magick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWand(t *testing.T) *magick.Wand {
	w, err := magick.NewFromBlob(testimage.Encode(t, 4, 4, testimage.PNG))
	require.NoError(t, err)
	return w
}

func TestTableStaleHandle(t *testing.T) {
	tb := newTable()
	defer tb.close()

	first := tb.insert(newTestWand(t))
	assert.Equal(t, uint32(1), first)
	w, ok := tb.remove(first)
	require.True(t, ok)
	w.Release()

	w2 := newTestWand(t)
	second := tb.insert(w2)
	assert.NotEqual(t, first, second)
	assert.Equal(t, first&slotMask, second&slotMask)

	_, ok = tb.get(first)
	assert.False(t, ok)
	_, ok = tb.remove(first)
	assert.False(t, ok)
	got, ok := tb.get(second)
	require.True(t, ok)
	assert.Same(t, w2, got)
	assert.False(t, w2.Closed())
	assert.Equal(t, 1, tb.len())
}

func TestTableGenerationWraps(t *testing.T) {
	tb := newTable()
	defer tb.close()
	w := newTestWand(t)
	var handle uint32
	for i := 0; i <= genMask+1; i++ {
		handle = tb.insert(w)
		require.NotZero(t, handle)
		assert.Less(t, int32(0), int32(handle))
		_, ok := tb.remove(handle)
		require.True(t, ok)
	}
	assert.Equal(t, uint32(1), handle)
	w.Release()
}

func TestTableInvalid(t *testing.T) {
	tb := newTable()
	_, ok := tb.get(0)
	assert.False(t, ok)
	_, ok = tb.remove(0)
	assert.False(t, ok)
	_, ok = tb.get(1 << slotBits)
	assert.False(t, ok)
	w := newTestWand(t)
	tb.close()
	assert.Zero(t, tb.insert(w))
	w.Release()
}
