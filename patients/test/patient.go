package test

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tidepool-org/blip/patients"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/test"
)

func RandomPatient(clinicId primitive.ObjectID) patients.Patient {
	birthDate := test.Faker.Time().TimeBetween(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-2, 0, 0))
	return patients.Patient{
		ClinicId:  &clinicId,
		UserId:    pointer.FromAny(test.Faker.UUID().V4()),
		FullName:  pointer.FromAny(test.Faker.Person().Name()),
		BirthDate: pointer.FromAny(birthDate.Format(patients.BirthDateLayout)),
		Mrn:       pointer.FromAny(test.Faker.Numerify("######")),
	}
}
