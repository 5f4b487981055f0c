package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/tanguc/vobotty/internal/accounts"
	"github.com/tanguc/vobotty/internal/chrono"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the stored accounts of a site.",
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatLastActed(at *time.Time) string {
	if at == nil {
		return "never"
	}
	return at.Local().Format(time.DateTime)
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the accounts of the site and whether they can vote now.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := loadConfig()
		site := lookupSite(config)

		source, err := openSource(ctx, config)
		if err != nil {
			serviceutil.Fatal("open accounts", err)
		}
		records, err := source.FetchAccounts(ctx, site.Domain())
		if errors.Is(err, accounts.ErrNotFound) {
			fmt.Printf("no accounts stored for %s\n", site.Domain())
			return
		}
		if err != nil {
			serviceutil.Fatal("fetch accounts", err)
		}

		eligible := make(map[string]bool)
		for _, record := range accounts.Eligible(records, chrono.NewStandardTime().Now(), config.cooldown()) {
			eligible[record.Identifier] = true
		}

		t := newTable()
		t.SetTitle(site.Domain())
		t.AppendHeader(table.Row{"Identifier", "Disabled", "Last voted", "Eligible"})
		for _, record := range records {
			t.AppendRow(table.Row{
				record.Identifier,
				record.Disabled,
				formatLastActed(record.LastActedAt),
				eligible[record.Identifier],
			})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d accounts", len(records)), "", "", fmt.Sprintf("%d eligible", len(eligible))})
		t.Render()
	},
}

// readSecret reads the first line of stdin so secrets never end up in the
// shell history.
func readSecret() (string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("expected the secret on stdin")
	}
	secret := strings.TrimRight(scanner.Text(), "\r")
	if secret == "" {
		return "", fmt.Errorf("expected the secret on stdin")
	}
	return secret, nil
}

var accountsAddCmd = &cobra.Command{
	Use:   "add <identifier>",
	Short: "Add an account, its secret is read from the first line of stdin.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := loadConfig()
		site := lookupSite(config)

		secret, err := readSecret()
		if err != nil {
			serviceutil.Fatal("read secret", err)
		}
		store, err := openStore(ctx, config)
		if err != nil {
			serviceutil.Fatal("open accounts", err)
		}
		err = store.Add(ctx, site.Domain(), accounts.Record{
			Identifier: args[0],
			Secret:     secret,
		})
		if err != nil {
			serviceutil.Fatal("add account", err)
		}
		fmt.Printf("added %s to %s\n", args[0], site.Domain())
	},
}

func setDisabledCmd(use, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <identifier>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			config := loadConfig()
			site := lookupSite(config)

			store, err := openStore(ctx, config)
			if err != nil {
				serviceutil.Fatal("open accounts", err)
			}
			err = store.SetDisabled(ctx, site.Domain(), args[0], disabled)
			if err != nil {
				serviceutil.Fatal(use+" account", err)
			}
			fmt.Printf("%sd %s\n", use, args[0])
		},
	}
}

func init() {
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(setDisabledCmd("disable", "Stop using an account in runs.", true))
	accountsCmd.AddCommand(setDisabledCmd("enable", "Use a disabled account again.", false))
	rootCmd.AddCommand(accountsCmd)
}
