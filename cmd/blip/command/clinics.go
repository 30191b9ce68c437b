package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/store"
)

var clinicsListParams = struct {
	ClinicianId string
	Limit       int
}{}

var clinicsCmd = &cobra.Command{
	Use:   "clinics",
	Short: "Clinics",
	Long:  "The clinics command is used to inspect clinics and their report settings",
}

var clinicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Clinics",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(listClinics) },
}

func listClinics(service clinics.Service) error {
	filter := clinics.Filter{}
	if clinicsListParams.ClinicianId != "" {
		filter.ClinicianId = pointer.FromAny(clinicsListParams.ClinicianId)
	}

	list, err := service.List(context.TODO(), &filter, store.DefaultPagination().WithLimit(clinicsListParams.Limit))
	if err != nil {
		return err
	}

	for _, clinic := range list {
		fmt.Printf("%s %s %s %s %s\n", clinic.Id.Hex(), pointer.ToString(clinic.Name), clinic.BgUnits(), clinic.Preset(), clinic.TimezoneName())
	}
	fmt.Printf("Found %v clinics\n", len(list))

	return nil
}

func init() {
	clinicsListCmd.Flags().StringVar(&clinicsListParams.ClinicianId, "clinician-id", "", "Only list the clinics of this clinician")
	clinicsListCmd.Flags().IntVar(&clinicsListParams.Limit, "limit", 1000, "Maximum number of clinics")

	clinicsCmd.AddCommand(clinicsListCmd)
	rootCmd.AddCommand(clinicsCmd)
}
