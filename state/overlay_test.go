package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayReadsThrough(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Put([]byte("dids"), []byte("k"), []byte("base-value")))

	overlay := NewOverlay(base)

	value, err := overlay.Get([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("base-value"), value)

	found, err := overlay.Has([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestOverlayWritesStayBuffered(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Put([]byte("dids"), []byte("k"), []byte("base-value")))

	overlay := NewOverlay(base)
	require.NoError(t, overlay.Put([]byte("dids"), []byte("k"), []byte("overlay-value")))
	require.NoError(t, overlay.Put([]byte("dids"), []byte("new"), []byte("only-here")))

	value, err := overlay.Get([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("overlay-value"), value)

	// The base store never sees overlay writes.
	value, err = base.Get([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("base-value"), value)

	found, err := base.Has([]byte("dids"), []byte("new"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOverlayDeleteShadowsBase(t *testing.T) {
	base := NewMemoryStore()
	require.NoError(t, base.Put([]byte("dids"), []byte("k"), []byte("base-value")))

	overlay := NewOverlay(base)
	require.NoError(t, overlay.Delete([]byte("dids"), []byte("k")))

	value, err := overlay.Get([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.Nil(t, value)

	found, err := overlay.Has([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.False(t, found)

	// Writing after a delete resurrects the key in the overlay only.
	require.NoError(t, overlay.Put([]byte("dids"), []byte("k"), []byte("again")))
	value, err = overlay.Get([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), value)

	value, err = base.Get([]byte("dids"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("base-value"), value)
}
