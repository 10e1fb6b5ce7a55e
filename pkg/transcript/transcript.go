// Package transcript exports a conversation for non-interactive output.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", errors.Errorf("unknown output format %q (expected text, yaml or json)", s)
	}
}

type Transcript struct {
	ThreadID string             `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	Messages []exchange.Message `json:"messages" yaml:"messages"`
	Error    string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// New builds a transcript from the messages of a finished exchange. err is the
// failure the exchange recovered from, if any.
func New(threadID string, messages []exchange.Message, err error) Transcript {
	t := Transcript{ThreadID: threadID, Messages: messages}
	if t.Messages == nil {
		t.Messages = []exchange.Message{}
	}
	if err != nil {
		t.Error = err.Error()
	}
	return t
}

// Failed reports whether the exchange behind t did not complete.
func (t Transcript) Failed() bool {
	return t.Error != ""
}

// Write encodes t to w. The text format prints only assistant replies, passed
// through r; a nil r prints them verbatim.
func (t Transcript) Write(w io.Writer, format Format, r render.Renderer) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return errors.Wrap(err, "failed to encode transcript as yaml")
		}
		return errors.Wrap(enc.Close(), "failed to flush yaml encoder")

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(t), "failed to encode transcript as json")

	case FormatText:
		for _, msg := range t.Messages {
			if msg.Role != exchange.RoleAssistant {
				continue
			}
			out := strings.TrimRight(render.RenderOrPlain(r, msg.Content), "\n")
			if _, err := fmt.Fprintln(w, out); err != nil {
				return errors.Wrap(err, "failed to write transcript")
			}
		}
		return nil
	}
	return errors.Errorf("unknown output format %q", format)
}
