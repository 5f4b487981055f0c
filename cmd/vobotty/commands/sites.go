package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/tanguc/vobotty/internal/targets"
	"github.com/tanguc/vobotty/lib/configutil"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the known sites, with the overrides of the config applied.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var overrides []targets.SiteConfig
		config, err := configutil.ReadConfig[Config](configPath)
		if err == nil {
			overrides = config.Sites
		}

		registry, err := targets.NewRegistry(overrides)
		if err != nil {
			serviceutil.Fatal("load sites", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Domain", "Host", "Action"})
		for _, site := range registry.Sites() {
			cfg := site.Config()
			t.AppendRow(table.Row{
				site.Name(),
				site.Domain(),
				cfg.Host,
				cfg.ActionPath + "?" + site.ActionQuery().Encode(),
			})
		}
		t.Render()
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
