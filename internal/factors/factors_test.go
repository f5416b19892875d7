package factors

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalize(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		name, ok := Normalize("  time_of_day\t")
		require.True(t, ok)
		assert.Equal(t, "time_of_day", name)
	})

	t.Run("composes unicode", func(t *testing.T) {
		decomposed := "cafe\u0301"
		composed := "caf\u00e9"
		a, ok := Normalize(decomposed)
		require.True(t, ok)
		b, ok := Normalize(composed)
		require.True(t, ok)
		assert.Equal(t, b, a)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, ok := Normalize("   ")
		assert.False(t, ok)
	})

	t.Run("rejects invalid utf8", func(t *testing.T) {
		_, ok := Normalize("bad\xff\xfename")
		assert.False(t, ok)
	})

	t.Run("truncates on rune boundary", func(t *testing.T) {
		long := strings.Repeat("é", MaxNameLength)
		name, ok := Normalize(long)
		require.True(t, ok)
		assert.LessOrEqual(t, len(name), MaxNameLength)
		assert.True(t, utf8.ValidString(name))
	})
}

func TestCatalog(t *testing.T) {
	c := NewCatalog([]string{" gait_analysis ", ""}, zap.NewNop())

	assert.True(t, c.IsKnown(IdentityRecognition))
	assert.True(t, c.IsKnown("gait_analysis"))
	assert.False(t, c.IsKnown("moon_phase"))
	assert.False(t, c.IsKnown(""))

	unknown := c.Unknown([]string{TimeOfDay, "moon_phase", "tide"})
	assert.Equal(t, []string{"moon_phase", "tide"}, unknown)
}
