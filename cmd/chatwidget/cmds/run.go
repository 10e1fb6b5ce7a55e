package cmds

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/ui"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// replyWidth is the wrap width for rendered replies inside the panel.
const replyWidth = 72

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the chat widget in the terminal",
		Long: "Start the chat widget. The widget starts as a single button line; " +
			"ctrl+o opens the message panel, esc closes it, ctrl+y copies the last reply and ctrl+c quits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			st, err := newStack(s)
			if err != nil {
				return err
			}

			renderer, err := render.New(s.RenderStrategy(), render.Options{
				Width:        replyWidth,
				GlamourStyle: s.GlamourStyle,
			})
			if err != nil {
				return err
			}

			backend := ui.NewBackend(cmd.Context(), st.sessions, st.client, exchangeOptions(s)...)
			defer backend.Close()

			model := ui.NewModel(backend, ui.Options{
				Title:       s.Title,
				Placeholder: s.Placeholder,
				OpenOnStart: s.OpenOnStart,
				Renderer:    renderer,
			})

			log.Info().Str("variant", s.Variant).Str("base_url", s.BaseURL).Msg("starting chat widget")
			p := tea.NewProgram(model, tea.WithContext(cmd.Context()), tea.WithMouseCellMotion())
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return errors.Wrap(err, "chat widget failed")
			}
			return nil
		},
	}
}
