package cmds

import (
	"github.com/go-go-golems/chatwidget/pkg/echobackend"
	"github.com/spf13/cobra"
)

func NewServeEchoCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-echo",
		Short: "Run an in-memory echo backend for local development",
		Long: "Serve the create-thread, send-message and get-response endpoints from memory. " +
			"Replies echo the message; /demo answers with a markdown sample, /silent queues no reply " +
			"and /fail makes delivery fail.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return echobackend.NewServer(nil).ListenAndServe(cmd.Context(), addr, nil)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	return cmd
}
