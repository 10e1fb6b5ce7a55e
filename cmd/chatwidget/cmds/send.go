package cmds

import (
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/transcript"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrExchangeFailed makes the process exit non-zero after a recovered failure.
var ErrExchangeFailed = errors.New("exchange failed")

func NewSendCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send one message and print the reply",
		Long: "Send one message to the backend and print the conversation. " +
			"The text format prints the assistant reply, rendered when stdout is a terminal.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := transcript.ParseFormat(output)
			if err != nil {
				return err
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			st, err := newStack(s)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("message text is empty")
			}

			ex := exchange.New(st.sessions, st.client, exchangeOptions(s)...)
			if err := ex.Submit(cmd.Context(), text); err != nil {
				return err
			}

			threadID, _ := st.sessions.ThreadID()
			tr := transcript.New(threadID, ex.Messages(), ex.LastError())

			out := cmd.OutOrStdout()
			var renderer render.Renderer
			if format == transcript.FormatText && isTerminal(out) {
				renderer, err = render.New(s.RenderStrategy(), render.Options{Width: replyWidth, GlamourStyle: s.GlamourStyle})
				if err != nil {
					return err
				}
			}
			if err := tr.Write(out, format, renderer); err != nil {
				return err
			}

			if tr.Failed() {
				return errors.Wrap(ErrExchangeFailed, tr.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(transcript.FormatText), "Output format: text, yaml or json")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
