package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/venudhannoju-glitch/ChitChat/internal/ui"
	"github.com/venudhannoju-glitch/ChitChat/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chitchat",
	Short: "Anonymous two-person chat rooms addressed by a 4-digit code",
	Long: `ChitChat pairs two people in a private room identified by a short 4-digit code.

One person creates a room and shares the code, the other joins with it. Messages
and typing indicators are relayed between the two. A room nobody joins expires
after a minute of waiting.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}
