package slug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Programming":          "programming",
		"Intro to Go":          "intro-to-go",
		"  C++ & Rust!!  ":     "c-rust",
		"Café Crème":           "cafe-creme",
		"John-Doe":             "john-doe",
		"already--dashed__x":   "already-dashed-x",
		"Python 3.12 Advanced": "python-3-12-advanced",
		"!!!":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestUniqueAppendsCounter(t *testing.T) {
	taken := map[string]bool{}
	exists := func(_ context.Context, candidate string) (bool, error) {
		return taken[candidate], nil
	}

	var got []string
	for i := 0; i < 4; i++ {
		s, err := Unique(context.Background(), "Intro to Go", "course", exists)
		require.NoError(t, err)
		taken[s] = true
		got = append(got, s)
	}
	assert.Equal(t, []string{"intro-to-go", "intro-to-go-1", "intro-to-go-2", "intro-to-go-3"}, got)
}

func TestUniqueFallback(t *testing.T) {
	s, err := Unique(context.Background(), "???", "category", func(context.Context, string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "category", s)
}

func TestUniquePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Unique(context.Background(), "Go", "course", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
