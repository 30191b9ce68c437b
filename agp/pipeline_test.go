package agp_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/agp"
	dataTest "github.com/tidepool-org/blip/data/test"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

var _ = Describe("Pipeline", func() {
	var ctrl *gomock.Controller
	var client *dataTest.MockClient
	var pipeline *agp.Pipeline
	var period stats.Period
	var bounds glucose.BgBounds

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		client = dataTest.NewMockClient(ctrl)

		var err error
		pipeline, err = agp.NewPipeline(client, agp.NewChartRenderer(), zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())

		loc, err := time.LoadLocation("America/Los_Angeles")
		Expect(err).ToNot(HaveOccurred())
		period, err = stats.DatePeriod("2024-02-01", "2024-02-14", loc)
		Expect(err).ToNot(HaveOccurred())

		bounds, err = glucose.BoundsForPreset(glucose.PresetADAStandard, glucose.MgdL)
		Expect(err).ToNot(HaveOccurred())
	})

	request := func(patientId string, images ...agp.ImageType) agp.Request {
		return agp.Request{
			PatientId: patientId,
			Period:    period,
			Options: agp.Options{
				Bounds: bounds,
				Images: images,
			},
		}
	}

	It("generates the report and images with sufficient data", func() {
		readings := dataTest.RandomCGMReadings(period.Start, period.End)
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", period.Start, period.End).Return(readings, nil)

		report, err := pipeline.Run(context.Background(), request("patient-a", agp.AllImageTypes...))
		Expect(err).ToNot(HaveOccurred())
		Expect(report.State).To(Equal(agp.StateImagesGenerated))
		Expect(report.Id).ToNot(BeEmpty())
		Expect(report.Summary.InsufficientData).To(BeFalse())
		Expect(report.Summary.GlucoseManagementIndicator).ToNot(BeNil())
		Expect(report.Percentiles).To(HaveLen(stats.AGPBinCount))
		Expect(report.Daily).To(HaveLen(14))
		Expect(report.Daily[0].Date).To(Equal(stats.LocalDateKey("2024-02-01")))

		Expect(report.Images).To(HaveLen(3))
		for _, image := range report.Images {
			Expect(image.ContentType).To(Equal("image/png"))
			Expect(bytes.HasPrefix(image.Data, pngMagic)).To(BeTrue())
		}
	})

	It("stops after processing when no images are requested", func() {
		readings := dataTest.RandomCGMReadings(period.Start, period.End)
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", gomock.Any(), gomock.Any()).Return(readings, nil)

		report, err := pipeline.Run(context.Background(), request("patient-a"))
		Expect(err).ToNot(HaveOccurred())
		Expect(report.State).To(Equal(agp.StateDataProcessed))
		Expect(report.Images).To(BeEmpty())
	})

	It("ends in the no data state without readings", func() {
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", gomock.Any(), gomock.Any()).Return(nil, nil)

		report, err := pipeline.Run(context.Background(), request("patient-a", agp.AllImageTypes...))
		Expect(err).ToNot(HaveOccurred())
		Expect(report.State).To(Equal(agp.StateNoPatientData))
		Expect(report.Images).To(BeEmpty())
	})

	It("ends in the insufficient data state with less than a day of data", func() {
		readings := dataTest.ConstantCGMReadings(period.Start, period.Start.Add(12*time.Hour), 120)
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", gomock.Any(), gomock.Any()).Return(readings, nil)

		report, err := pipeline.Run(context.Background(), request("patient-a", agp.AllImageTypes...))
		Expect(err).ToNot(HaveOccurred())
		Expect(report.State).To(Equal(agp.StateInsufficientData))
		Expect(report.Summary.GlucoseManagementIndicator).To(BeNil())
		Expect(report.Summary.AGPGlucoseManagementIndicator).ToNot(BeNil())
	})

	It("discards readings when another patient is loaded during the fetch", func() {
		readings := dataTest.RandomCGMReadings(period.Start, period.End)
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, userId string, start, end time.Time) ([]glucose.Reading, error) {
				Expect(pipeline.LoadPatient(request("patient-b"))).To(Succeed())
				return readings, nil
			})

		Expect(pipeline.LoadPatient(request("patient-a"))).To(Succeed())
		err := pipeline.FetchData(context.Background())
		Expect(errors.Is(err, agp.ErrStalePatient)).To(BeTrue())

		Expect(pipeline.State()).To(Equal(agp.StatePatientLoaded))
		Expect(pipeline.Report().PatientId).To(Equal("patient-b"))
		_, err = pipeline.ProcessData()
		Expect(errors.Is(err, agp.ErrStalePatient)).To(BeTrue())
	})

	It("propagates fetch errors", func() {
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		_, err := pipeline.Run(context.Background(), request("patient-a"))
		Expect(err).To(MatchError("boom"))
	})

	It("rejects invalid bounds before loading the patient", func() {
		req := request("patient-a")
		req.Options.Bounds = glucose.BgBounds{TargetLowerBound: 70, TargetUpperBound: 180}
		Expect(errors.Is(pipeline.LoadPatient(req), glucose.ErrInvalidBounds)).To(BeTrue())
		Expect(pipeline.State()).To(Equal(agp.StateInitialized))
	})

	It("snapshots the options when the patient is loaded", func() {
		readings := dataTest.RandomCGMReadings(period.Start, period.End)
		client.EXPECT().ListReadings(gomock.Any(), "patient-a", gomock.Any(), gomock.Any()).Return(readings, nil)

		req := request("patient-a", agp.ImagePercentInRanges)
		Expect(pipeline.LoadPatient(req)).To(Succeed())
		req.Options.Images[0] = agp.ImageDailyGlucoseProfiles

		Expect(pipeline.FetchData(context.Background())).To(Succeed())
		_, err := pipeline.ProcessData()
		Expect(err).ToNot(HaveOccurred())
		Expect(pipeline.GenerateImages()).To(Succeed())
		Expect(pipeline.Report().Images).To(HaveKey(agp.ImagePercentInRanges))
		Expect(pipeline.Report().Images).ToNot(HaveKey(agp.ImageDailyGlucoseProfiles))
	})
})

var _ = Describe("ImageType", func() {
	It("accepts every known image type", func() {
		for _, imageType := range agp.AllImageTypes {
			Expect(imageType.Validate()).To(Succeed())
		}
	})

	It("rejects unknown image types as invalid arguments", func() {
		err := agp.ImageType("bogus").Validate()
		Expect(err).To(MatchError(agp.ErrUnknownImageType))

		_, err = agp.NewChartRenderer().Render(agp.ImageType("bogus"), &agp.Report{})
		Expect(err).To(MatchError(agp.ErrUnknownImageType))
	})
})
