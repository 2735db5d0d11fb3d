package sandboxrt

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimNewline(t *testing.T) {
	cases := map[string]string{
		"abc123\n":   "abc123",
		"abc123\r\n": "abc123",
		"abc123":     "abc123",
		"":           "",
		"\n\n":       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, trimNewline(in))
	}
}

func TestNewDockerSandbox_DefaultsImage(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker binary not available in this environment")
	}
	s, err := NewDockerSandbox("")
	require.NoError(t, err)
	assert.Equal(t, "debian:bookworm-slim", s.image)
}

func TestNewDockerSandbox_MissingBinaryErrors(t *testing.T) {
	if _, err := exec.LookPath("docker"); err == nil {
		t.Skip("docker binary is available; cannot exercise the not-found path")
	}
	_, err := NewDockerSandbox("")
	assert.Error(t, err)
}
