package patients_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx/fxtest"

	"github.com/tidepool-org/blip/deletions"
	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/patients"
	patientsTest "github.com/tidepool-org/blip/patients/test"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/store"
	dbTest "github.com/tidepool-org/blip/store/test"
	"github.com/tidepool-org/blip/test"
)

var _ = Describe("Patients Repository", func() {
	var repo patients.Service
	var clinicId primitive.ObjectID

	BeforeEach(func() {
		var err error
		lifecycle := fxtest.NewLifecycle(GinkgoT())
		repo, err = patients.NewRepository(dbTest.GetTestDatabase(), lifecycle)
		Expect(err).ToNot(HaveOccurred())
		lifecycle.RequireStart()

		clinicId = primitive.NewObjectID()
	})

	Context("With patients", func() {
		var created []*patients.Patient

		BeforeEach(func() {
			created = nil
			for range 3 {
				patient, err := repo.Create(context.Background(), patientsTest.RandomPatient(clinicId))
				Expect(err).ToNot(HaveOccurred())
				created = append(created, patient)
			}
		})

		It("returns a patient by clinic and user id", func() {
			patient, err := repo.Get(context.Background(), clinicId.Hex(), *created[0].UserId)
			Expect(err).ToNot(HaveOccurred())
			Expect(patient.FullName).To(Equal(created[0].FullName))
			Expect(patient.BirthDate).To(Equal(created[0].BirthDate))
			Expect(patient.Mrn).To(Equal(created[0].Mrn))
		})

		It("lists the patients of the clinic", func() {
			result, err := repo.List(context.Background(), &patients.Filter{ClinicId: pointer.FromAny(clinicId.Hex())}, store.DefaultPagination())
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(HaveLen(3))
		})

		It("paginates the list", func() {
			pagination := store.Pagination{Offset: 1, Limit: 1}
			result, err := repo.List(context.Background(), &patients.Filter{ClinicId: pointer.FromAny(clinicId.Hex())}, pagination)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(HaveLen(1))
		})

		It("does not list patients of other clinics", func() {
			other := primitive.NewObjectID().Hex()
			result, err := repo.List(context.Background(), &patients.Filter{ClinicId: &other}, store.DefaultPagination())
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(BeEmpty())
		})

		It("rejects duplicate patients", func() {
			duplicate := patientsTest.RandomPatient(clinicId)
			duplicate.UserId = created[0].UserId
			_, err := repo.Create(context.Background(), duplicate)
			Expect(err).To(MatchError(patients.ErrDuplicatePatient))
			Expect(err).To(MatchError(errors.Duplicate))
		})

		It("allows the same user in another clinic", func() {
			other := patientsTest.RandomPatient(primitive.NewObjectID())
			other.UserId = created[0].UserId
			_, err := repo.Create(context.Background(), other)
			Expect(err).ToNot(HaveOccurred())
		})

		It("removes a patient", func() {
			Expect(repo.Remove(context.Background(), clinicId.Hex(), *created[1].UserId, nil)).To(Succeed())
			_, err := repo.Get(context.Background(), clinicId.Hex(), *created[1].UserId)
			Expect(err).To(MatchError(patients.ErrNotFound))
		})

		It("archives removed patients", func() {
			deletedBy := test.Faker.UUID().V4()
			Expect(repo.Remove(context.Background(), clinicId.Hex(), *created[1].UserId, &deletedBy)).To(Succeed())

			archived := deletions.Deletion[patients.Patient]{}
			err := dbTest.GetTestDatabase().Collection("patient_deletions").
				FindOne(context.Background(), bson.M{"document.userId": *created[1].UserId, "document.clinicId": clinicId}).
				Decode(&archived)
			Expect(err).ToNot(HaveOccurred())
			Expect(archived.DeletedByUserId).To(PointTo(Equal(deletedBy)))
			Expect(archived.Document.FullName).To(Equal(created[1].FullName))
			Expect(archived.DeletedTime).ToNot(BeZero())
		})

		It("returns not found when removing twice", func() {
			Expect(repo.Remove(context.Background(), clinicId.Hex(), *created[2].UserId, nil)).To(Succeed())
			Expect(repo.Remove(context.Background(), clinicId.Hex(), *created[2].UserId, nil)).To(MatchError(patients.ErrNotFound))
		})
	})

	It("rejects invalid patients", func() {
		patient := patientsTest.RandomPatient(clinicId)
		patient.BirthDate = pointer.FromAny("yesterday")
		_, err := repo.Create(context.Background(), patient)
		Expect(err).To(MatchError(patients.ErrInvalidPatient))
	})
})
