package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	t.Run("keeps first error per key", func(t *testing.T) {
		v := New()
		v.Check(false, "name", "must be provided")
		v.Check(false, "name", "must not be more than 100 bytes long")

		assert.False(t, v.Valid())
		assert.Equal(t, "must be provided", v.Errors["name"])
	})

	t.Run("passing checks leave it valid", func(t *testing.T) {
		v := New()
		v.Check(true, "name", "must be provided")
		assert.True(t, v.Valid())
	})
}

func TestMatches(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", true},
		{"spotify:album:4uLU6hMCjMI75M1A2tKUQC", false},
		{"spotify:track:short", false},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.value, TrackURIRX))
		})
	}

	assert.True(t, Matches("spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", ContextURIRX))
	assert.True(t, Matches("someone@example.com", EmailRX))
	assert.False(t, Matches("someone@", EmailRX))
}

func TestPermittedValueAndUnique(t *testing.T) {
	assert.True(t, PermittedValue("pause", "play", "pause"))
	assert.False(t, PermittedValue("stop", "play", "pause"))
	assert.True(t, Unique([]string{"a", "b"}))
	assert.False(t, Unique([]string{"a", "a"}))
}
