package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/config"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/store"
	"github.com/tidepool-org/blip/summary"
)

var summariesRefreshParams = struct {
	ClinicId  string
	PatientId string
	Limit     int
	DryRun    bool
}{}

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Patient Summaries",
	Long:  "The summaries command is used to manage the cached glucose summaries of patients",
}

var summariesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Args:  cobra.ExactArgs(1),
	Short: "Refresh Summaries",
	Long:  "The refresh command recalculates the summaries of the patients of a clinic",
	RunE: func(cmd *cobra.Command, args []string) error {
		summariesRefreshParams.ClinicId = args[0]
		return Run(refreshSummaries)
	},
}

func refreshSummaries(cfg *config.Config, clinicsService clinics.Service, patientsService patients.Service, summaries summary.Service, logger *zap.SugaredLogger) error {
	ctx := context.TODO()
	clinic, err := clinicsService.Get(ctx, summariesRefreshParams.ClinicId)
	if err != nil {
		return err
	}

	filter := patients.Filter{ClinicId: &summariesRefreshParams.ClinicId}
	if summariesRefreshParams.PatientId != "" {
		filter.UserId = &summariesRefreshParams.PatientId
	}

	list, err := patientsService.List(ctx, &filter, store.DefaultPagination().WithLimit(summariesRefreshParams.Limit))
	if err != nil {
		return err
	}

	fmt.Printf("Refreshing summaries of %v patients\n", len(list))

	refreshed := 0
	for _, patient := range list {
		settings, err := patients.ResolveReportSettings(patient, clinic, cfg.DefaultTimezone)
		if err != nil {
			logger.Warnw("skipping patient with invalid settings", "userId", *patient.UserId, "error", err)
			continue
		}
		if summariesRefreshParams.DryRun {
			fmt.Printf("Would refresh %s in %s\n", *patient.UserId, settings.Location)
			continue
		}

		result, err := summaries.Refresh(ctx, *patient.UserId, settings.Bounds, settings.Location)
		if err != nil {
			logger.Errorw("unable to refresh summary", "userId", *patient.UserId, "error", err)
			continue
		}
		refreshed++

		if period, ok := result.Periods["14d"]; ok && period.TimeInTargetPercent != nil {
			fmt.Printf("%s 14d time in target %s%%\n", *patient.UserId, stats.FormatPercent(*period.TimeInTargetPercent, 1))
		}
	}

	fmt.Printf("Refreshed %v summaries\n", refreshed)
	return nil
}

func init() {
	summariesRefreshCmd.Flags().StringVar(&summariesRefreshParams.PatientId, "patient-id", "", "Only refresh the summary of this patient")
	summariesRefreshCmd.Flags().IntVar(&summariesRefreshParams.Limit, "limit", 1000, "Maximum number of patients")
	summariesRefreshCmd.Flags().BoolVar(&summariesRefreshParams.DryRun, "dry-run", false, "List the patients without refreshing")

	summariesCmd.AddCommand(summariesRefreshCmd)
	rootCmd.AddCommand(summariesCmd)
}
