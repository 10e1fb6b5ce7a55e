package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/chatwidget/cmd/chatwidget/cmds"
	"github.com/go-go-golems/chatwidget/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "chatwidget",
	Short:        "chatwidget is a terminal chat widget for a thread-based chat backend",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// flags are parsed by now, so --log-level and --log-file are known
		return cmds.InitLogger(cmd)
	},
}

func main() {
	config.AddFlags(rootCmd)
	rootCmd.AddCommand(
		cmds.NewRunCommand(),
		cmds.NewSendCommand(),
		cmds.NewServeEchoCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	// PersistentPostRunE is skipped when a command fails, so close here
	if closeErr := cmds.CloseLogger(); closeErr != nil {
		fmt.Fprintln(os.Stderr, closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
