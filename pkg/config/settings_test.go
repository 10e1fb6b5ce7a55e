package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()
	// keep the user's real config out of the picture
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd)
	return cmd
}

func load(t *testing.T, cmd *cobra.Command) (*Settings, error) {
	t.Helper()
	v, err := NewViper(cmd)
	require.NoError(t, err)
	return Load(v)
}

func TestLoad_DefaultVariant(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set(KeyBaseURL, "https://chat.example.com/ "))

	s, err := load(t, cmd)
	require.NoError(t, err)

	require.Equal(t, "https://chat.example.com", s.BaseURL)
	require.Equal(t, DefaultVariant, s.Variant)
	require.Equal(t, 30*time.Second, s.Timeout)
	require.Equal(t, 0, s.Retries)
	require.Equal(t, exchange.FailureSilent, s.Policy())
	require.Equal(t, render.StrategyPlain, s.RenderStrategy())
	require.Equal(t, exchange.DefaultFallbackMessage, s.FallbackMessage)
	require.False(t, s.OpenOnStart)
}

func TestLoad_InlineVariantPreset(t *testing.T) {
	cmd := newTestCommand(t)
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Set(KeyBaseURL, "http://localhost:8080"))
	require.NoError(t, flags.Set(KeyVariant, "inline"))

	s, err := load(t, cmd)
	require.NoError(t, err)
	require.True(t, s.OpenOnStart)
	require.Equal(t, exchange.FailureFallback, s.Policy())
	require.Equal(t, render.StrategyBlocks, s.RenderStrategy())
	require.Equal(t, "Chat", s.Title)
}

func TestLoad_FlagsOverridePreset(t *testing.T) {
	cmd := newTestCommand(t)
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Set(KeyBaseURL, "http://localhost:8080"))
	require.NoError(t, flags.Set(KeyVariant, "inline"))
	require.NoError(t, flags.Set(KeyFailurePolicy, "silent"))
	require.NoError(t, flags.Set(KeyRender, "markdown"))
	require.NoError(t, flags.Set(KeyTimeout, "5s"))
	require.NoError(t, flags.Set(KeyRetries, "2"))

	s, err := load(t, cmd)
	require.NoError(t, err)
	require.Equal(t, exchange.FailureSilent, s.Policy())
	require.Equal(t, render.StrategyMarkdown, s.RenderStrategy())
	require.Equal(t, 5*time.Second, s.Timeout)
	require.Equal(t, 2, s.Retries)
	require.True(t, s.OpenOnStart)
}

func TestLoad_Environment(t *testing.T) {
	cmd := newTestCommand(t)
	t.Setenv("CHATWIDGET_BASE_URL", "https://env.example.com/")
	t.Setenv("CHATWIDGET_VARIANT", "floating-markdown")
	t.Setenv("CHATWIDGET_FALLBACK_MESSAGE", "Try later.")

	s, err := load(t, cmd)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", s.BaseURL)
	require.Equal(t, "floating-markdown", s.Variant)
	require.Equal(t, render.StrategyMarkdown, s.RenderStrategy())
	require.Equal(t, "Try later.", s.FallbackMessage)
}

func TestLoad_ConfigFile(t *testing.T) {
	cmd := newTestCommand(t)

	data, err := yaml.Marshal(map[string]interface{}{
		"base-url":       "https://file.example.com",
		"variant":        "inline",
		"title":          "Support",
		"failure-policy": "silent",
		"timeout":        "10s",
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "widget.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	require.NoError(t, cmd.PersistentFlags().Set(KeyConfig, path))
	require.NoError(t, cmd.PersistentFlags().Set(KeyTitle, "From flag"))

	s, err := load(t, cmd)
	require.NoError(t, err)
	require.Equal(t, "https://file.example.com", s.BaseURL)
	require.Equal(t, "inline", s.Variant)
	require.Equal(t, "From flag", s.Title)
	require.Equal(t, exchange.FailureSilent, s.Policy())
	require.Equal(t, 10*time.Second, s.Timeout)
}

func TestLoad_ConfigFileInWorkingDirectory(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, os.WriteFile("chatwidget.yaml", []byte("base-url: http://cwd.example.com\n"), 0o600))

	s, err := load(t, cmd)
	require.NoError(t, err)
	require.Equal(t, "http://cwd.example.com", s.BaseURL)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set(KeyConfig, filepath.Join(t.TempDir(), "nope.yaml")))

	_, err := load(t, cmd)
	require.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
	}{
		{name: "missing base url", flags: map[string]string{}},
		{name: "unknown variant", flags: map[string]string{KeyBaseURL: "http://x", KeyVariant: "sidebar"}},
		{name: "unknown policy", flags: map[string]string{KeyBaseURL: "http://x", KeyFailurePolicy: "retry"}},
		{name: "unknown render", flags: map[string]string{KeyBaseURL: "http://x", KeyRender: "html"}},
		{name: "negative retries", flags: map[string]string{KeyBaseURL: "http://x", KeyRetries: "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestCommand(t)
			for k, v := range tt.flags {
				require.NoError(t, cmd.PersistentFlags().Set(k, v))
			}
			_, err := load(t, cmd)
			require.Error(t, err)
		})
	}
}

func TestVariantNames(t *testing.T) {
	require.Equal(t, []string{"floating", "floating-markdown", "inline"}, VariantNames())
	_, ok := LookupVariant(DefaultVariant)
	require.True(t, ok)
}
