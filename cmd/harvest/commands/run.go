package commands

import (
	"errors"
	"log/slog"
	"os"

	"mailmetrics-backend/services/harvest"
	harvestdb "mailmetrics-backend/services/harvest/db"

	"github.com/spf13/cobra"
)

var (
	runConfig *string
	runDb     *string
	runProbe  *bool
)

func init() {
	runConfig = runCmd.Flags().String("config", "config.json5", "Path to the harvest config.")
	runDb = runCmd.Flags().String("db", "results.db", "The database to write composite records to.")
	runProbe = runCmd.Flags().Bool("probe", true, "Probe API availability (remaining credits) before harvesting.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [campaign ids...]",
	Short: "Harvests a batch of campaigns into a database. Without ids, every campaign on the account is harvested.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := setupRuntime(ctx, *runConfig)
		if err != nil {
			return err
		}
		defer rt.cleanup()

		if *runProbe {
			credits, err := rt.api.GetCredits(ctx)
			if err != nil {
				slog.Warn("API availability probe failed", "err", err)
			} else {
				slog.Info("API reachable", "remaining_credits", credits)
			}
		}

		ids, err := parseCampaignIds(args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			campaigns, err := rt.api.GetCampaigns(ctx)
			if err != nil {
				return err
			}
			for _, campaign := range campaigns {
				ids = append(ids, campaign.Id)
			}
			slog.Info("harvesting the whole account", "campaigns", len(ids))
		}

		database, err := harvestdb.Open(*runDb)
		if err != nil {
			return err
		}
		defer database.Close()
		sink := harvestdb.NewStore(database)

		summary, err := rt.service.HarvestBatch(ctx, ids, sink)
		slog.Info("harvest summary",
			"succeeded", summary.Succeeded, "failed", summary.Failed)
		for _, failure := range summary.Failures {
			slog.Error("campaign failed", "campaign_id", failure.CampaignId, "err", failure.Err)
		}
		if errors.Is(err, harvest.ErrAllFailed) {
			slog.Error("no campaign produced a record", "err", err)
			os.Exit(1)
		}
		return err
	},
}
