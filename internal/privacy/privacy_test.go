package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		message   string
		forbidden []string
		keep      []string
	}{
		{
			name:      "tape path",
			message:   "failed to open tape /home/alice/sessions/take3.wav: permission denied",
			forbidden: []string{"alice", "sessions", "take3"},
			keep:      []string{"failed to open tape", ".wav", "permission denied"},
		},
		{
			name:      "windows path",
			message:   `read C:\Users\bob\tape.wav failed`,
			forbidden: []string{"bob"},
			keep:      []string{"read", ".wav failed"},
		},
		{
			name:      "url with credentials",
			message:   "sentry dsn https://key@example.com:9000/42 rejected",
			forbidden: []string{"key@", "example.com"},
			keep:      []string{"url-https-port-9000", "rejected"},
		},
		{
			name:    "nothing to scrub",
			message: "tape streamer closed",
			keep:    []string{"tape streamer closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScrubMessage(tt.message)
			for _, s := range tt.forbidden {
				assert.NotContains(t, got, s)
			}
			for _, s := range tt.keep {
				assert.Contains(t, got, s)
			}
		})
	}
}

func TestAnonymizePathIsStable(t *testing.T) {
	t.Parallel()

	a := AnonymizePath("/data/tapes/mix.wav")
	b := AnonymizePath("/data/tapes/mix.wav")
	c := AnonymizePath("/data/tapes/other.wav")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasSuffix(a, ".wav"))
	assert.Equal(t, 3, strings.Count(a, "seg-"))
}
