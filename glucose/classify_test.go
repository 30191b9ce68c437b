package glucose_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	blipErrors "github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/test"
)

var _ = Describe("Classify", func() {
	bounds := glucose.BgBounds{
		VeryLowThreshold:  54,
		TargetLowerBound:  70,
		TargetUpperBound:  180,
		VeryHighThreshold: 250,
		Units:             glucose.MgdL,
	}

	DescribeTable("five way",
		func(value float64, expected glucose.Band) {
			band, err := glucose.Classify(bounds, value, glucose.FiveWay)
			Expect(err).ToNot(HaveOccurred())
			Expect(band).To(Equal(expected))
		},
		Entry("below very low", 40.0, glucose.BandVeryLow),
		Entry("at very low", 54.0, glucose.BandLow),
		Entry("low", 65.0, glucose.BandLow),
		Entry("at target lower bound", 70.0, glucose.BandTarget),
		Entry("at target upper bound", 180.0, glucose.BandTarget),
		Entry("just above target", 181.0, glucose.BandHigh),
		Entry("at very high", 250.0, glucose.BandHigh),
		Entry("above very high", 251.0, glucose.BandVeryHigh),
	)

	DescribeTable("three way",
		func(value float64, expected glucose.Band) {
			band, err := glucose.Classify(glucose.BgBounds{TargetLowerBound: 70, TargetUpperBound: 180}, value, glucose.ThreeWay)
			Expect(err).ToNot(HaveOccurred())
			Expect(band).To(Equal(expected))
		},
		Entry("low", 69.9, glucose.BandLow),
		Entry("target lower", 70.0, glucose.BandTarget),
		Entry("target upper", 180.0, glucose.BandTarget),
		Entry("high", 180.1, glucose.BandHigh),
	)

	It("assigns every positive value to exactly one ordered band", func() {
		for i := 0; i < 500; i++ {
			value := test.Rand.Float64()*400 + 0.01
			band, err := glucose.Classify(bounds, value, glucose.FiveWay)
			Expect(err).ToNot(HaveOccurred())

			switch band {
			case glucose.BandVeryLow:
				Expect(value).To(BeNumerically("<", 54))
			case glucose.BandLow:
				Expect(value).To(And(BeNumerically(">=", 54), BeNumerically("<", 70)))
			case glucose.BandTarget:
				Expect(value).To(And(BeNumerically(">=", 70), BeNumerically("<=", 180)))
			case glucose.BandHigh:
				Expect(value).To(And(BeNumerically(">", 180), BeNumerically("<=", 250)))
			case glucose.BandVeryHigh:
				Expect(value).To(BeNumerically(">", 250))
			default:
				Fail("unexpected band " + string(band))
			}
		}
	})

	DescribeTable("rejects invalid values",
		func(value float64) {
			_, err := glucose.Classify(bounds, value, glucose.FiveWay)
			Expect(errors.Is(err, glucose.ErrInvalidValue)).To(BeTrue())
			Expect(errors.Is(err, blipErrors.InvalidArgument)).To(BeTrue())
		},
		Entry("zero", 0.0),
		Entry("negative", -5.0),
		Entry("NaN", math.NaN()),
		Entry("infinity", math.Inf(1)),
	)

	It("requires very low and very high thresholds for five way classification", func() {
		_, err := glucose.Classify(glucose.BgBounds{TargetLowerBound: 70, TargetUpperBound: 180}, 100, glucose.FiveWay)
		Expect(errors.Is(err, glucose.ErrInvalidBounds)).To(BeTrue())
	})

	It("rejects inverted target bounds", func() {
		_, err := glucose.Classify(glucose.BgBounds{TargetLowerBound: 180, TargetUpperBound: 70}, 100, glucose.ThreeWay)
		Expect(errors.Is(err, glucose.ErrInvalidBounds)).To(BeTrue())
	})

	It("rejects thresholds out of order", func() {
		invalid := bounds
		invalid.VeryHighThreshold = 150
		_, err := glucose.Classify(invalid, 100, glucose.FiveWay)
		Expect(errors.Is(err, glucose.ErrInvalidBounds)).To(BeTrue())
	})
})

var _ = Describe("ClassifyCv", func() {
	It("treats 36 as target", func() {
		Expect(glucose.ClassifyCv(36)).To(Equal(glucose.CvTarget))
	})

	It("treats values above 36 as high", func() {
		Expect(glucose.ClassifyCv(36.1)).To(Equal(glucose.CvHigh))
	})
})

var _ = Describe("Band", func() {
	It("has a display label", func() {
		Expect(glucose.BandVeryLow.Label()).To(Equal("Very Low"))
		Expect(glucose.BandTarget.Label()).To(Equal("Target"))
		Expect(glucose.BandVeryHigh.Label()).To(Equal("Very High"))
	})
})
