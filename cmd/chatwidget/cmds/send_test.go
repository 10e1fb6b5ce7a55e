package cmds

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/chatwidget/pkg/config"
	"github.com/go-go-golems/chatwidget/pkg/echobackend"
	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/transcript"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	root := &cobra.Command{Use: "chatwidget", SilenceUsage: true, SilenceErrors: true}
	config.AddFlags(root)
	root.AddCommand(NewSendCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newBackend(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(echobackend.NewServer(nil).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestSend_PrintsReply(t *testing.T) {
	url := newBackend(t)

	out, err := execute(t, "send", "--base-url", url, "hello", "there")
	require.NoError(t, err)
	// the default floating variant prints replies as plain text
	require.Equal(t, "Echo: hello there\n", out)
}

func TestSend_JSONTranscript(t *testing.T) {
	url := newBackend(t)

	out, err := execute(t, "send", "--base-url", url, "--output", "json", "hi")
	require.NoError(t, err)

	var tr transcript.Transcript
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	require.NotEmpty(t, tr.ThreadID)
	require.Len(t, tr.Messages, 2)
	require.Equal(t, exchange.RoleUser, tr.Messages[0].Role)
	require.Equal(t, "Echo: hi", tr.Messages[1].Content)
	require.Empty(t, tr.Error)
}

func TestSend_FailureExitsWithError(t *testing.T) {
	url := newBackend(t)

	out, err := execute(t, "send", "--base-url", url, "--variant", "inline", "/fail")
	require.ErrorIs(t, err, ErrExchangeFailed)
	require.Equal(t, exchange.DefaultFallbackMessage+"\n", out)

	out, err = execute(t, "send", "--base-url", url, "/fail")
	require.ErrorIs(t, err, ErrExchangeFailed)
	require.Equal(t, "", out)
}

func TestSend_NoReplyIsNotAFailure(t *testing.T) {
	url := newBackend(t)

	out, err := execute(t, "send", "--base-url", url, "/silent")
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestSend_RequiresBaseURL(t *testing.T) {
	_, err := execute(t, "send", "hello")
	require.Error(t, err)
}

func TestInitLogger_LogFileIsClosed(t *testing.T) {
	url := newBackend(t)
	path := filepath.Join(t.TempDir(), "chatwidget.log")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	root := &cobra.Command{
		Use:               "chatwidget",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return InitLogger(cmd) },
	}
	config.AddFlags(root)
	root.AddCommand(NewSendCommand())
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"send", "--base-url", url, "--log-level", "debug", "--log-file", path, "hi"})

	require.NoError(t, root.Execute())
	require.NotNil(t, logFile)
	f := logFile

	require.NoError(t, CloseLogger())
	require.Nil(t, logFile)
	require.ErrorIs(t, f.Close(), os.ErrClosed)
	require.NoError(t, CloseLogger())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "settings loaded")
}
