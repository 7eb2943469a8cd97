package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVector(t *testing.T) {
	t.Run("parses values", func(t *testing.T) {
		got, err := parseVector("[0.5, -1.25, 3]")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, -1.25, 3}, got)
	})

	t.Run("empty string is nil", func(t *testing.T) {
		got, err := parseVector("")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := parseVector("0.5,1.0")
		assert.Error(t, err)

		_, err = parseVector("[a,b]")
		assert.Error(t, err)
	})
}
