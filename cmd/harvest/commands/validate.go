package commands

import (
	"errors"
	"fmt"
	"os"

	"mailmetrics-backend/services/harvest"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var validateConfig *string

func init() {
	validateConfig = validateCmd.Flags().String("config", "config.json5", "Path to the harvest config.")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <campaign id>",
	Short: "Harvests one campaign and prints a comparison of the API and scraped views.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ids, err := parseCampaignIds(args)
		if err != nil {
			return err
		}

		rt, err := setupRuntime(ctx, *validateConfig)
		if err != nil {
			return err
		}
		defer rt.cleanup()

		record, err := rt.service.GetCompositeRecord(ctx, ids[0])
		if err != nil {
			return err
		}

		fmt.Printf("campaign %d: %s\n", record.CampaignId, record.Identity.Name)
		fmt.Printf("subject: %s\n", record.Identity.Subject)
		fmt.Printf("from: %s\n", record.Identity.EmailFrom)
		fmt.Printf("sent: %s (%s)\n", record.Identity.DateSent, record.Identity.Status)

		api := newTable("API view")
		api.AppendHeader(table.Row{"Metric", "Value"})
		api.AppendRows([]table.Row{
			{"delivered", fmt.Sprintf("%d of %d", record.Totals.TotalDelivered, record.Totals.EmailsToSend)},
			{"opened", fmt.Sprintf("%d (%.1f%%), unopened %d",
				record.Totals.Opened, record.Totals.OpenRate(), record.Totals.Unopened)},
			{"clicks", fmt.Sprintf("%d unique (%.1f%%), %d total",
				record.Totals.UniqueClicks, record.Totals.ClickRate(), record.Totals.TotalClicks)},
			{"bounces", fmt.Sprintf("%d hard, %d soft (%.1f%%)",
				record.Totals.HardBounces, record.Totals.SoftBounces, record.Totals.BounceRate())},
			{"openers", fmt.Sprintf("%d rows", len(record.Openers))},
			{"soft bounces", fmt.Sprintf("%d rows", len(record.SoftBounces))},
		})
		api.Render()

		if record.Sources.Scraping {
			checks := newTable("Cross-checks")
			checks.AppendHeader(table.Row{"Group", "API", "Scraped", "Outcome", "Result"})
			checks.AppendRows([]table.Row{
				compareRow("hard bounces", int(record.Totals.HardBounces), record.HardBounces),
				compareRow("non-openers", int(record.Totals.Unopened), record.NonOpeners),
			})
			checks.Render()
		} else {
			fmt.Println("scraped view: unavailable")
		}

		fmt.Printf("sources: api=%t scraping=%t\n", record.Sources.API, record.Sources.Scraping)
		if len(record.Degraded) > 0 {
			fmt.Printf("degraded portions: %v\n", record.Degraded)
			return errors.New("record is degraded")
		}
		return nil
	},
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	return t
}

func compareRow(group string, apiCount int, scraped harvest.ScrapedGroup) table.Row {
	result := "match"
	if apiCount != len(scraped.Subscribers) {
		result = "MISMATCH"
	}
	return table.Row{group, apiCount, len(scraped.Subscribers), scraped.Outcome.String(), result}
}
