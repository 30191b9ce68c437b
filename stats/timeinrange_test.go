package stats_test

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
	"github.com/tidepool-org/blip/test"
)

var _ = Describe("Aggregate", func() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	It("counts readings per band", func() {
		values := []float64{40, 54, 65, 70, 100, 180, 181, 250, 251}
		var readings []glucose.Reading
		for i, v := range values {
			readings = append(readings, cbg(start.Add(time.Duration(i)*time.Minute), v))
		}

		counts, err := stats.Aggregate(readings, standardBounds)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts).To(Equal(stats.TimeInRangeCounts{
			VeryLow:  1,
			Low:      2,
			Target:   3,
			High:     2,
			VeryHigh: 1,
			Total:    9,
		}))
	})

	It("excludes invalid readings", func() {
		readings := []glucose.Reading{
			cbg(start, 100),
			cbg(start, math.NaN()),
			cbg(start, 0),
			cbg(start, -10),
			cbg(start, math.Inf(1)),
		}
		counts, err := stats.Aggregate(readings, standardBounds)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts.Total).To(Equal(1))
		Expect(counts.Target).To(Equal(1))
	})

	It("converts readings to the units of the bounds", func() {
		mmol, err := glucose.BoundsForPreset(glucose.PresetADAStandard, glucose.MmolL)
		Expect(err).ToNot(HaveOccurred())

		counts, err := stats.Aggregate([]glucose.Reading{cbg(start, 190), cbg(start, 100)}, mmol)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts.High).To(Equal(1))
		Expect(counts.Target).To(Equal(1))
	})

	It("fails on invalid bounds", func() {
		_, err := stats.Aggregate(nil, glucose.BgBounds{TargetLowerBound: 70, TargetUpperBound: 180})
		Expect(errors.Is(err, glucose.ErrInvalidBounds)).To(BeTrue())
	})

	It("keeps band counts summing to the total", func() {
		var readings []glucose.Reading
		for i := 0; i < 1000; i++ {
			value := test.Rand.Float64()*420 - 20
			if i%17 == 0 {
				value = math.NaN()
			}
			readings = append(readings, cbg(start.Add(time.Duration(i)*5*time.Minute), value))
		}
		counts, err := stats.Aggregate(readings, standardBounds)
		Expect(err).ToNot(HaveOccurred())
		Expect(counts.VeryLow + counts.Low + counts.Target + counts.High + counts.VeryHigh).To(Equal(counts.Total))
		Expect(counts.Total).To(BeNumerically("<=", len(readings)))
	})
})

var _ = Describe("TimeInRangeCounts", func() {
	It("rounds percentages to whole numbers", func() {
		counts := stats.TimeInRangeCounts{Target: 476, High: 257, Total: 733}
		Expect(*counts.Percent(glucose.BandTarget)).To(Equal(65.0))
		Expect(*counts.Percent(glucose.BandHigh)).To(Equal(35.0))
	})

	It("rounds half to even", func() {
		Expect(*stats.TimeInRangeCounts{Target: 1, High: 7, Total: 8}.Percent(glucose.BandTarget)).To(Equal(12.0))
		Expect(*stats.TimeInRangeCounts{Target: 3, High: 5, Total: 8}.Percent(glucose.BandTarget)).To(Equal(38.0))
	})

	It("supports other precisions", func() {
		counts := stats.TimeInRangeCounts{Target: 476, High: 257, Total: 733}
		Expect(*counts.PercentWithPlaces(glucose.BandTarget, 1)).To(Equal(64.9))
	})

	It("is idempotent for whole percentages", func() {
		counts := stats.TimeInRangeCounts{Target: 65, High: 35, Total: 100}
		Expect(*counts.Percent(glucose.BandTarget)).To(Equal(65.0))
		Expect(glucose.Round(*counts.Percent(glucose.BandTarget), 0)).To(Equal(65.0))
	})

	It("has no percentages without readings", func() {
		counts := stats.TimeInRangeCounts{}
		Expect(counts.Percent(glucose.BandTarget)).To(BeNil())
		Expect(counts.Percentages()).To(BeNil())
	})

	It("returns every band", func() {
		counts := stats.TimeInRangeCounts{VeryLow: 1, Low: 1, Target: 2, Total: 4}
		Expect(counts.Percentages()).To(Equal(map[glucose.Band]float64{
			glucose.BandVeryLow:  25,
			glucose.BandLow:      25,
			glucose.BandTarget:   50,
			glucose.BandHigh:     0,
			glucose.BandVeryHigh: 0,
		}))
	})
})
