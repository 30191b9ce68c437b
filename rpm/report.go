package rpm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/tealeg/xlsx/v3"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/stats"
)

const (
	// SufficientDays is the number of qualifying days a patient needs for the report period to be billable
	SufficientDays = 16

	CSVMimeType  = "text/csv;charset=utf-8;"
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ReportSheetName = "RPM Report"

	filenameDateLayout = "01-02-2006"
)

var Header = []string{"Name", "Date of Birth", "MRN", "Qualifying Days", "Sufficient Data"}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func (f Format) MimeType() string {
	if f == FormatXLSX {
		return XLSXMimeType
	}
	return CSVMimeType
}

type Row struct {
	UserId         string `json:"userId"`
	Name           string `json:"name"`
	BirthDate      string `json:"birthDate"`
	Mrn            string `json:"mrn"`
	QualifyingDays int    `json:"qualifyingDays"`
	SufficientData bool   `json:"sufficientData"`
}

type Report struct {
	Period stats.Period `json:"-"`
	Rows   []Row        `json:"rows"`
}

// QualifyingDays counts the distinct local dates of the period that have at least one valid CGM reading
func QualifyingDays(readings []glucose.Reading, period stats.Period) int {
	days := mapset.NewThreadUnsafeSet[stats.LocalDateKey]()
	for _, r := range period.Filter(readings) {
		if r.IsValid() && r.IsContinuous() {
			days.Add(stats.LocalDateOf(r.Time, period.Location))
		}
	}
	return days.Cardinality()
}

func NewRow(patient *patients.Patient, readings []glucose.Reading, period stats.Period) Row {
	qualifying := QualifyingDays(readings, period)
	return Row{
		UserId:         pointer.ToString(patient.UserId),
		Name:           pointer.ToString(patient.FullName),
		BirthDate:      patient.FormattedBirthDate(),
		Mrn:            pointer.ToString(patient.Mrn),
		QualifyingDays: qualifying,
		SufficientData: qualifying >= SufficientDays,
	}
}

// LastDay is the last local day included in the report
func (r Report) LastDay() time.Time {
	return r.Period.End.In(r.Period.Location).AddDate(0, 0, -1)
}

func (r Report) Filename(format Format) string {
	start := r.Period.Start.In(r.Period.Location).Format(filenameDateLayout)
	end := r.LastDay().Format(filenameDateLayout)
	return fmt.Sprintf("RPM Report (%s - %s).%s", start, end, format)
}

func (r Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatXLSX:
		file, err := r.Generate()
		if err != nil {
			return err
		}
		return file.Write(w)
	default:
		return r.WriteCSV(w)
	}
}

// WriteCSV writes text columns quoted and numeric and boolean columns bare
func (r Report) WriteCSV(w io.Writer) error {
	var b strings.Builder
	for i, h := range Header {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(h))
	}
	b.WriteString("\n")

	for _, row := range r.Rows {
		b.WriteString(strings.Join([]string{
			quote(row.Name),
			quote(row.BirthDate),
			quote(row.Mrn),
			strconv.Itoa(row.QualifyingDays),
			formatBool(row.SufficientData),
		}, ","))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r Report) Generate() (*xlsx.File, error) {
	file := xlsx.NewFile()
	sh, err := file.AddSheet(ReportSheetName)
	if err != nil {
		return nil, err
	}

	currentRow := sh.AddRow()
	for _, h := range Header {
		currentRow.AddCell().SetValue(h)
	}

	for _, row := range r.Rows {
		currentRow = sh.AddRow()
		currentRow.AddCell().SetValue(row.Name)
		currentRow.AddCell().SetValue(row.BirthDate)
		currentRow.AddCell().SetValue(row.Mrn)
		currentRow.AddCell().SetInt(row.QualifyingDays)
		currentRow.AddCell().SetValue(formatBool(row.SufficientData))
	}

	return file, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
