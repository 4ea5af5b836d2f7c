package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, "departments", []byte(`[{"dept_no":"d001"}]`), time.Hour))

	got, ok, err := s.Get(ctx, "departments")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"dept_no":"d001"}]`, string(got))

	got[0] = 'X'
	again, _, _ := s.Get(ctx, "departments")
	assert.Equal(t, byte('['), again[0], "stored value must not alias returned slices")

	require.NoError(t, s.Delete(ctx, "departments", "missing"))
	_, ok, err = s.Get(ctx, "departments")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Expires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, "top_employees", []byte("[]"), 20*time.Millisecond))

	_, ok, _ := s.Get(ctx, "top_employees")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok, err := s.Get(ctx, "top_employees")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire after its ttl")
}
