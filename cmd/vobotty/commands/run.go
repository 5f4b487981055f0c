package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanguc/vobotty/internal/notify"
	"github.com/tanguc/vobotty/internal/runner"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Vote with every eligible account of the site.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := loadConfig()
		site := lookupSite(config)

		r, err := newRunner(ctx, config, site)
		if err != nil {
			serviceutil.Fatal("setup runner", err)
		}
		summary, err := r.Run(ctx)
		if len(summary.Results) > 0 || len(summary.Skipped) > 0 {
			runner.RenderSummary(os.Stdout, summary)
		}
		if err != nil {
			serviceutil.Fatal("run", err)
		}

		err = notify.NewEmail(config.Smtp).Notify(ctx, summary)
		if err != nil {
			slog.WarnContext(ctx, "failed to send run summary", "err", err)
		}

		if summary.Failed() > 0 {
			ShutdownTelemetry()
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
