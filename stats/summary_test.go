package stats_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
)

var _ = Describe("Compute", func() {
	var period stats.Period
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		var err error
		period, err = stats.DatePeriod("2024-01-01", "2024-01-02", time.UTC)
		Expect(err).ToNot(HaveOccurred())
	})

	It("computes every metric with a full day of data", func() {
		readings := everyFiveMinutes(start, 288, 154)
		summary, err := stats.Compute(readings, standardBounds, period)
		Expect(err).ToNot(HaveOccurred())

		Expect(summary.InsufficientData).To(BeFalse())
		Expect(summary.TimeInRange.Target).To(Equal(288))
		Expect(*summary.AverageGlucose).To(Equal(154.0))
		Expect(*summary.GlucoseManagementIndicator).To(BeNumerically("~", 6.99368, 1e-9))
		Expect(*summary.AGPGlucoseManagementIndicator).To(BeNumerically("~", 6.99368, 1e-9))
		Expect(*summary.SensorUsage).To(Equal(50.0))
		Expect(summary.Coverage).To(Equal(24 * time.Hour))
		Expect(summary.DaysWorn).To(Equal(1))
		Expect(*summary.StandardDeviation).To(Equal(0.0))
		Expect(summary.CoefficientOfVariationClass).To(Equal(glucose.CvTarget))
		Expect(*summary.FirstReading).To(BeTemporally("==", start))
		Expect(*summary.LastReading).To(BeTemporally("==", start.Add(287*5*time.Minute)))
	})

	It("withholds the headline GMI with less than a day of coverage", func() {
		readings := everyFiveMinutes(start, 287, 154)
		summary, err := stats.Compute(readings, standardBounds, period)
		Expect(err).ToNot(HaveOccurred())

		Expect(summary.InsufficientData).To(BeTrue())
		Expect(summary.GlucoseManagementIndicator).To(BeNil())
		Expect(summary.AGPGlucoseManagementIndicator).ToNot(BeNil())
		Expect(summary.AverageGlucose).ToNot(BeNil())
	})

	It("ignores readings outside of the period", func() {
		readings := append(everyFiveMinutes(start.Add(-time.Hour), 12, 40), everyFiveMinutes(start, 12, 100)...)
		summary, err := stats.Compute(readings, standardBounds, period)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.TimeInRange.Total).To(Equal(12))
		Expect(summary.TimeInRange.VeryLow).To(Equal(0))
	})

	It("reports values in the units of the bounds", func() {
		bounds, err := glucose.BoundsForPreset(glucose.PresetADAStandard, glucose.MmolL)
		Expect(err).ToNot(HaveOccurred())

		summary, err := stats.Compute(everyFiveMinutes(start, 10, 180.1559), bounds, period)
		Expect(err).ToNot(HaveOccurred())
		Expect(*summary.AverageGlucose).To(BeNumerically("~", 10, 1e-9))
	})

	It("handles periods without data", func() {
		summary, err := stats.Compute(nil, standardBounds, period)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.HasData()).To(BeFalse())
		Expect(summary.InsufficientData).To(BeTrue())
		Expect(summary.AverageGlucose).To(BeNil())
		Expect(summary.TimeInRange.Percent(glucose.BandTarget)).To(BeNil())
	})
})
