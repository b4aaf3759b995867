package progress

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Mode
	}{
		{"empty environment", nil, ModeTerminal},
		{"explicit notebook", map[string]string{EnvRenderMode: "notebook"}, ModeNotebook},
		{"explicit terminal beats jupyter", map[string]string{EnvRenderMode: "terminal", EnvJupyterParent: "42"}, ModeTerminal},
		{"jupyter kernel", map[string]string{EnvJupyterParent: "42"}, ModeNotebook},
		{"blank jupyter pid", map[string]string{EnvJupyterParent: " "}, ModeTerminal},
		{"auto falls through", map[string]string{EnvRenderMode: "auto", EnvJupyterParent: "7"}, ModeNotebook},
		{"garbage mode ignored", map[string]string{EnvRenderMode: "html"}, ModeTerminal},
		{"case insensitive", map[string]string{EnvRenderMode: "NoteBook"}, ModeNotebook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMode(envLookup(tt.env)))
		})
	}
}

func TestDetectModeNilLookup(t *testing.T) {
	assert.Equal(t, ModeTerminal, DetectMode(nil))
}

func TestInNotebookFromEnvironment(t *testing.T) {
	t.Setenv(EnvRenderMode, "")
	t.Setenv(EnvJupyterParent, "")
	assert.False(t, InNotebook())

	t.Setenv(EnvRenderMode, "notebook")
	assert.True(t, InNotebook())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"term", ModeTerminal},
		{"Terminal", ModeTerminal},
		{"ipynb", ModeNotebook},
		{" notebook ", ModeNotebook},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMode("html")
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "auto", ModeAuto.String())
	assert.Equal(t, "terminal", ModeTerminal.String())
	assert.Equal(t, "notebook", ModeNotebook.String())
}

func TestIsTerminalFalseForPipe(t *testing.T) {
	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	assert.False(t, IsTerminal(rd.Fd()))
	assert.False(t, IsTerminal(wr.Fd()))
}
