package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/metrics"
)

// metricsCommand creates the metrics command.
func (c *CLI) metricsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "metrics [scene]",
		Short: "Show recent load metrics",
		Long:  `Show the most recent scene loads from every host (cli, desktop, server), newest first.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scene := ""
			if len(args) == 1 {
				scene = args[0]
				if err := vpoerrors.ValidateSceneName(scene); err != nil {
					return err
				}
			}
			if limit < 1 {
				return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "limit must be >= 1")
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := metrics.Open(ctx, cfg.MetricsOptions())
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			records, err := store.Recent(ctx, scene, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo("No loads recorded yet")
				printNextStep("Record one", appName+" load <scene>")
				return nil
			}
			fmt.Println(metricsTable(records))
			return nil
		},
		ValidArgsFunction: c.completeScenes,
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	return cmd
}

// metricsTable renders one row per load.
func metricsTable(records []metrics.LoadMetrics) string {
	t := newTable("When", "Scene", "Host", "Frames", "Success", "Initial", "First paint", "Total")
	for _, m := range records {
		t.Row(
			m.RecordedAt.Local().Format("01-02 15:04:05"),
			m.Scene,
			m.Host,
			fmt.Sprintf("%d/%d", m.FramesLoaded, m.TotalFrames),
			fmt.Sprintf("%.0f%%", m.SuccessRate()*100),
			formatDuration(m.InitialLoadTime),
			formatDuration(m.FirstPaintTime),
			formatDuration(m.TotalLoadTime),
		)
	}
	return t.Render()
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "—"
	}
	return d.Round(time.Millisecond).String()
}
