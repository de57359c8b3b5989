package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreOnceSemantics(t *testing.T) {
	s := New[string]()

	ok := s.Add("k", "v1")
	require.True(t, ok)

	ok = s.Add("k", "v2")
	assert.False(t, ok)

	v, found := s.Get("k")
	require.True(t, found)
	assert.Equal(t, "v1", v)
}

func TestContainsAndMissing(t *testing.T) {
	s := New[ScopedKey]()
	key := ScopedKey{Scope: "youtube-sts", Key: "abcd1234"}

	assert.False(t, s.Contains(key))
	s.Add(key, "19999")
	assert.True(t, s.Contains(key))

	_, found := s.Get(ScopedKey{Scope: "other", Key: "abcd1234"})
	assert.False(t, found)
}

func TestGetOrAddComputesOnce(t *testing.T) {
	s := New[string]()
	calls := 0
	compute := func() (string, error) {
		calls++
		return "computed", nil
	}

	v1, err := s.GetOrAdd("k", compute)
	require.NoError(t, err)
	v2, err := s.GetOrAdd("k", compute)
	require.NoError(t, err)

	assert.Equal(t, "computed", v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}
