package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tidepool-org/blip/rpm"
)

var rpmExportParams = struct {
	ClinicId  string
	StartDate string
	EndDate   string
	Format    string
	OutputDir string
}{}

var rpmCmd = &cobra.Command{
	Use:   "rpm",
	Short: "Remote Patient Monitoring",
	Long:  "The rpm command is used to generate remote patient monitoring reports",
}

var rpmExportCmd = &cobra.Command{
	Use:   "export",
	Args:  cobra.ExactArgs(1),
	Short: "Export RPM Report",
	Long:  "The export command writes the RPM report of a clinic to the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		rpmExportParams.ClinicId = args[0]
		return Run(exportRPMReport)
	},
}

func exportRPMReport(service *rpm.Service) error {
	format := rpm.Format(rpmExportParams.Format)
	if format != rpm.FormatCSV && format != rpm.FormatXLSX {
		return fmt.Errorf("unsupported format %q", rpmExportParams.Format)
	}

	report, err := service.Generate(context.TODO(), rpmExportParams.ClinicId, rpmExportParams.StartDate, rpmExportParams.EndDate)
	if err != nil {
		return err
	}

	path := filepath.Join(rpmExportParams.OutputDir, report.Filename(format))
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := report.Write(file, format); err != nil {
		return err
	}

	fmt.Printf("Exported %v patients to %s\n", len(report.Rows), path)
	return nil
}

func init() {
	rpmExportCmd.Flags().StringVar(&rpmExportParams.StartDate, "start-date", "", "First day of the report (YYYY-MM-DD)")
	rpmExportCmd.Flags().StringVar(&rpmExportParams.EndDate, "end-date", "", "Last day of the report (YYYY-MM-DD)")
	rpmExportCmd.Flags().StringVar(&rpmExportParams.Format, "format", string(rpm.FormatCSV), "Output format (csv or xlsx)")
	rpmExportCmd.Flags().StringVar(&rpmExportParams.OutputDir, "output-dir", ".", "Directory the report is written to")
	_ = rpmExportCmd.MarkFlagRequired("start-date")
	_ = rpmExportCmd.MarkFlagRequired("end-date")

	rpmCmd.AddCommand(rpmExportCmd)
	rootCmd.AddCommand(rpmCmd)
}
