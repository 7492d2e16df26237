package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/venudhannoju-glitch/ChitChat/internal/config"
	"github.com/venudhannoju-glitch/ChitChat/internal/session"
	"github.com/venudhannoju-glitch/ChitChat/internal/ui"
)

var flagStatsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live room statistics from a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadClient(flagServer)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		stats, err := fetchStats(ctx, cfg.HTTPBase())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagStatsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Fprintln(out, ui.StatsView(cfg.HTTPBase(), stats))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&flagServer, "server", "s", "", "server URL (env CHITCHAT_SERVER)")
	statsCmd.Flags().BoolVar(&flagStatsJSON, "json", false, "print raw JSON")

	rootCmd.AddCommand(statsCmd)
}

func fetchStats(ctx context.Context, base string) (session.Stats, error) {
	var stats session.Stats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/stats", nil)
	if err != nil {
		return stats, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("server returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}
