package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

var checkCmd = &cobra.Command{
	Use:   "check <identifier>",
	Short: "Log an account in and verify the session without voting.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := loadConfig()
		site := lookupSite(config)

		r, err := newRunner(ctx, config, site)
		if err != nil {
			serviceutil.Fatal("setup runner", err)
		}
		result, err := r.Check(ctx, args[0])
		if err != nil {
			serviceutil.Fatal("check", err)
		}

		if result.Succeeded() {
			fmt.Printf("%s: logged into %s\n", result.Account, result.Website)
			return
		}
		fmt.Printf("%s: %s (%s)\n", result.Account, result.Reason, result.State.Kind)
		ShutdownTelemetry()
		os.Exit(2)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
