package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaw(t *testing.T) {
	s, err := New("raw", 0)
	require.NoError(t, err)
	assert.Equal(t, "raw", s.Name())
	assert.Equal(t, 2.5, s.Score(3, 5.5))
	assert.Equal(t, -2.3, s.Score(3, 0.7))
	assert.Equal(t, 0.0, s.Score(4, 4))
}

func TestDefaultIsRaw(t *testing.T) {
	s, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, "raw", s.Name())
}

func TestNormalized(t *testing.T) {
	s, err := New("normalized", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Score(4, 6))
	assert.Equal(t, -0.5, s.Score(4, 2))
	assert.Equal(t, 0.0, s.Score(0, 7), "degenerate empty description scores zero")
}

func TestThresholded(t *testing.T) {
	s, err := New("thresholded", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Score(3, 5))
	assert.Equal(t, 0.0, s.Score(3, 4), "below theta clips to zero")
	assert.Equal(t, 0.0, s.Score(3, 1), "negative unexpectedness clips to zero")
}

func TestThresholdedRejectsNegativeTheta(t *testing.T) {
	_, err := New("thresholded", -1)
	require.Error(t, err)
}

func TestUnknownStrategy(t *testing.T) {
	_, err := New("bayesian", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bayesian")
}

func TestNamesCoverRegistry(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name, 0)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
	}
}
