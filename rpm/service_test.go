package rpm_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/clinics"
	clinicsTest "github.com/tidepool-org/blip/clinics/test"
	"github.com/tidepool-org/blip/config"
	dataTest "github.com/tidepool-org/blip/data/test"
	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/patients"
	patientsTest "github.com/tidepool-org/blip/patients/test"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/rpm"
	"github.com/tidepool-org/blip/store"
	"github.com/tidepool-org/blip/test"
)

var _ = Describe("Service", func() {
	var ctrl *gomock.Controller
	var clinicsService *clinicsTest.MockService
	var patientsService *patientsTest.MockService
	var client *dataTest.MockClient
	var service *rpm.Service

	var clinicId primitive.ObjectID
	var clinic *clinics.Clinic

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		clinicsService = clinicsTest.NewMockService(ctrl)
		patientsService = patientsTest.NewMockService(ctrl)
		client = dataTest.NewMockClient(ctrl)

		service = rpm.NewService(rpm.Params{
			Clinics:  clinicsService,
			Patients: patientsService,
			Client:   client,
			Config:   &config.Config{DefaultTimezone: "UTC"},
			Logger:   zap.NewNop().Sugar(),
		})

		clinicId = primitive.NewObjectID()
		clinic = clinicsTest.RandomClinic()
		clinic.Id = &clinicId
		clinic.Timezone = pointer.FromAny("UTC")
	})

	It("returns an error when the clinic does not exist", func() {
		clinicsService.EXPECT().Get(gomock.Any(), clinicId.Hex()).Return(nil, clinics.ErrNotFound)

		_, err := service.Generate(context.Background(), clinicId.Hex(), "2024-01-01", "2024-01-30")
		Expect(err).To(MatchError(clinics.ErrNotFound))
	})

	It("rejects malformed dates", func() {
		clinicsService.EXPECT().Get(gomock.Any(), clinicId.Hex()).Return(clinic, nil)

		_, err := service.Generate(context.Background(), clinicId.Hex(), "01/01/2024", "2024-01-30")
		Expect(err).To(MatchError(rpm.ErrInvalidReportPeriod))
		Expect(err).To(MatchError(errors.BadRequest))
	})

	It("rejects periods that are too long", func() {
		clinicsService.EXPECT().Get(gomock.Any(), clinicId.Hex()).Return(clinic, nil)

		_, err := service.Generate(context.Background(), clinicId.Hex(), "2024-01-01", "2024-12-31")
		Expect(err).To(MatchError(rpm.ErrInvalidReportPeriod))
	})

	It("builds a row for every patient of the clinic", func() {
		jill := patientsTest.RandomPatient(clinicId)
		jill.FullName = pointer.FromAny("Jill Jellyfish")
		jill.BirthDate = pointer.FromAny("2000-01-01")
		jill.Mrn = pointer.FromAny("123456")
		other := patientsTest.RandomPatient(clinicId)

		clinicsService.EXPECT().Get(gomock.Any(), clinicId.Hex()).Return(clinic, nil)
		patientsService.EXPECT().
			List(gomock.Any(), test.Match(func(f *patients.Filter) bool {
				return f != nil && pointer.ToString(f.ClinicId) == clinicId.Hex()
			}), store.Pagination{Limit: 100}).
			Return([]*patients.Patient{&jill, &other}, nil)

		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		client.EXPECT().ListReadings(gomock.Any(), *jill.UserId, sameTime(start), sameTime(end)).
			Return(dataTest.ConstantCGMReadings(start, start.AddDate(0, 0, 17), 120), nil)
		client.EXPECT().ListReadings(gomock.Any(), *other.UserId, sameTime(start), sameTime(end)).
			Return(nil, nil)

		report, err := service.Generate(context.Background(), clinicId.Hex(), "2024-01-01", "2024-01-30")
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Rows).To(HaveLen(2))
		Expect(report.Rows[0]).To(Equal(rpm.Row{
			UserId:         *jill.UserId,
			Name:           "Jill Jellyfish",
			BirthDate:      "01/01/2000",
			Mrn:            "123456",
			QualifyingDays: 17,
			SufficientData: true,
		}))
		Expect(report.Rows[1].QualifyingDays).To(Equal(0))
		Expect(report.Rows[1].SufficientData).To(BeFalse())
		Expect(report.Filename(rpm.FormatCSV)).To(Equal("RPM Report (01-01-2024 - 01-30-2024).csv"))
	})

	It("pages through the patients", func() {
		clinicsService.EXPECT().Get(gomock.Any(), clinicId.Hex()).Return(clinic, nil)

		firstPage := make([]*patients.Patient, 100)
		for i := range firstPage {
			p := patientsTest.RandomPatient(clinicId)
			firstPage[i] = &p
		}
		gomock.InOrder(
			patientsService.EXPECT().List(gomock.Any(), gomock.Any(), store.Pagination{Offset: 0, Limit: 100}).Return(firstPage, nil),
			patientsService.EXPECT().List(gomock.Any(), gomock.Any(), store.Pagination{Offset: 100, Limit: 100}).Return([]*patients.Patient{}, nil),
		)
		client.EXPECT().ListReadings(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(100)

		report, err := service.Generate(context.Background(), clinicId.Hex(), "2024-01-01", "2024-01-30")
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Rows).To(HaveLen(100))
	})

	It("uses the timezone of the patient", func() {
		patient := patientsTest.RandomPatient(clinicId)
		patient.Timezone = pointer.FromAny("Pacific/Auckland")

		clinicsService.EXPECT().Get(gomock.Any(), clinicId.Hex()).Return(clinic, nil)
		patientsService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Return([]*patients.Patient{&patient}, nil)

		auckland, err := time.LoadLocation("Pacific/Auckland")
		Expect(err).ToNot(HaveOccurred())
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, auckland)
		client.EXPECT().ListReadings(gomock.Any(), *patient.UserId, sameTime(start), gomock.Any()).Return(nil, nil)

		_, err = service.Generate(context.Background(), clinicId.Hex(), "2024-01-01", "2024-01-30")
		Expect(err).ToNot(HaveOccurred())
	})
})

func sameTime(expected time.Time) gomock.Matcher {
	return test.Match(func(t time.Time) bool {
		return t.Equal(expected)
	})
}
