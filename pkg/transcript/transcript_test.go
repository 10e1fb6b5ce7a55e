package transcript

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sample() []exchange.Message {
	return []exchange.Message{
		{Role: exchange.RoleUser, Content: "hello", Sequence: 0, CreatedAt: created},
		{Role: exchange.RoleAssistant, Content: "## Hi\n - **there**", Sequence: 1, CreatedAt: created},
	}
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("t1", sample(), nil).Write(&buf, FormatYAML, nil))

	var out Transcript
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "t1", out.ThreadID)
	require.Equal(t, sample(), out.Messages)
	require.NotContains(t, buf.String(), "error:")
}

func TestWrite_JSONWithError(t *testing.T) {
	var buf bytes.Buffer
	tr := New("", nil, errors.New("delivery failed"))
	require.True(t, tr.Failed())
	require.NoError(t, tr.Write(&buf, FormatJSON, nil))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "delivery failed", out["error"])
	require.Equal(t, []interface{}{}, out["messages"])
	require.NotContains(t, out, "thread_id")
}

func TestWrite_TextPrintsAssistantReplies(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("t1", sample(), nil).Write(&buf, FormatText, nil))
	require.Equal(t, "## Hi\n - **there**\n", buf.String())

	buf.Reset()
	blocks := &render.BlocksRenderer{Styles: render.NoStyles()}
	require.NoError(t, New("t1", sample(), nil).Write(&buf, FormatText, blocks))
	require.Equal(t, "Hi\n• there\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}
