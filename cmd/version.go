package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/venudhannoju-glitch/ChitChat/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ChitChat version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chitchat %s (%s %s/%s)\n", version.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
