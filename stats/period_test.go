package stats_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
)

var _ = Describe("BucketByLocalDate", func() {
	var newYork *time.Location

	BeforeEach(func() {
		var err error
		newYork, err = time.LoadLocation("America/New_York")
		Expect(err).ToNot(HaveOccurred())
	})

	It("buckets by local calendar date across a spring forward transition", func() {
		start := time.Date(2024, 3, 9, 0, 0, 0, 0, newYork)
		end := time.Date(2024, 3, 12, 0, 0, 0, 0, newYork)

		var readings []glucose.Reading
		for t := start; t.Before(end); t = t.Add(time.Hour) {
			readings = append(readings, cbg(t, 120))
		}

		buckets, err := stats.BucketByLocalDate(readings, "America/New_York")
		Expect(err).ToNot(HaveOccurred())
		Expect(buckets).To(HaveLen(3))
		Expect(buckets).To(HaveKey(stats.LocalDateKey("2024-03-09")))
		Expect(buckets["2024-03-09"]).To(HaveLen(24))
		Expect(buckets["2024-03-10"]).To(HaveLen(23))
		Expect(buckets["2024-03-11"]).To(HaveLen(24))
	})

	It("uses the local date rather than the UTC date", func() {
		reading := cbg(time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC), 100)
		buckets, err := stats.BucketByLocalDate([]glucose.Reading{reading}, "America/New_York")
		Expect(err).ToNot(HaveOccurred())
		Expect(buckets).To(HaveKey(stats.LocalDateKey("2024-01-01")))
	})

	It("fails fast on unknown timezones", func() {
		_, err := stats.BucketByLocalDate(nil, "Mars/Olympus_Mons")
		Expect(errors.Is(err, stats.ErrUnknownTimezone)).To(BeTrue())
	})

	It("rejects empty timezones", func() {
		_, err := stats.BucketByLocalDate(nil, "")
		Expect(errors.Is(err, stats.ErrUnknownTimezone)).To(BeTrue())
	})
})

var _ = Describe("ResolveLocation", func() {
	It("falls back to the default when the timezone is empty", func() {
		loc, err := stats.ResolveLocation("", "Europe/Berlin")
		Expect(err).ToNot(HaveOccurred())
		Expect(loc.String()).To(Equal("Europe/Berlin"))
	})

	It("does not fall back for unknown timezones", func() {
		_, err := stats.ResolveLocation("Nowhere/Land", "Europe/Berlin")
		Expect(errors.Is(err, stats.ErrUnknownTimezone)).To(BeTrue())
	})
})

var _ = Describe("DaysWorn", func() {
	It("counts buckets with at least one valid reading", func() {
		buckets := map[stats.LocalDateKey][]glucose.Reading{
			"2024-01-01": {cbg(time.Now(), 100)},
			"2024-01-02": {cbg(time.Now(), 0)},
			"2024-01-05": {cbg(time.Now(), 0), cbg(time.Now(), 90)},
		}
		Expect(stats.DaysWorn(buckets)).To(Equal(2))
	})
})

var _ = Describe("Period", func() {
	var newYork *time.Location

	BeforeEach(func() {
		var err error
		newYork, err = time.LoadLocation("America/New_York")
		Expect(err).ToNot(HaveOccurred())
	})

	It("spans whole local days", func() {
		end := time.Date(2024, 3, 11, 15, 30, 0, 0, newYork)
		period, err := stats.PeriodOfDays(end, 7, newYork)
		Expect(err).ToNot(HaveOccurred())
		Expect(period.End).To(BeTemporally("==", time.Date(2024, 3, 12, 0, 0, 0, 0, newYork)))
		Expect(period.Start).To(BeTemporally("==", time.Date(2024, 3, 5, 0, 0, 0, 0, newYork)))
		Expect(period.Duration()).To(Equal(7*24*time.Hour - time.Hour))
		Expect(period.LocalDays()).To(HaveLen(7))
	})

	It("ends at the given time when it is local midnight", func() {
		end := time.Date(2024, 1, 10, 0, 0, 0, 0, newYork)
		period, err := stats.PeriodOfDays(end, 1, newYork)
		Expect(err).ToNot(HaveOccurred())
		Expect(period.End).To(BeTemporally("==", end))
		Expect(period.Start).To(BeTemporally("==", time.Date(2024, 1, 9, 0, 0, 0, 0, newYork)))
	})

	It("builds the preceding period with the same number of days", func() {
		period, err := stats.DatePeriod("2024-03-10", "2024-03-16", newYork)
		Expect(err).ToNot(HaveOccurred())
		Expect(period.LocalDays()).To(HaveLen(7))

		offset := period.Offset()
		Expect(offset.End).To(BeTemporally("==", period.Start))
		Expect(offset.Start).To(BeTemporally("==", time.Date(2024, 3, 3, 0, 0, 0, 0, newYork)))
		Expect(offset.LocalDays()).To(HaveLen(7))
	})

	It("keeps the duration of unaligned periods", func() {
		start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
		period, err := stats.NewPeriod(start, start.Add(36*time.Hour), "UTC")
		Expect(err).ToNot(HaveOccurred())
		Expect(period.Offset().Duration()).To(Equal(36 * time.Hour))
	})

	It("is half open", func() {
		period, err := stats.DatePeriod("2024-01-01", "2024-01-01", time.UTC)
		Expect(err).ToNot(HaveOccurred())
		Expect(period.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))).To(BeTrue())
		Expect(period.Contains(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))).To(BeFalse())
	})

	It("rejects inverted ranges", func() {
		_, err := stats.DatePeriod("2024-01-05", "2024-01-01", time.UTC)
		Expect(errors.Is(err, stats.ErrInvalidPeriod)).To(BeTrue())
	})

	It("rejects malformed dates", func() {
		_, err := stats.DatePeriod("01/05/2024", "2024-01-06", time.UTC)
		Expect(errors.Is(err, stats.ErrInvalidPeriod)).To(BeTrue())
	})
})
