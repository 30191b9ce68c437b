package test

import (
	"github.com/tidepool-org/blip/clinics"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/pointer"
	"github.com/tidepool-org/blip/test"
)

var timezones = []string{
	"America/Los_Angeles",
	"America/New_York",
	"Europe/London",
	"Australia/Sydney",
}

func RandomClinic() *clinics.Clinic {
	return &clinics.Clinic{
		Name:                pointer.FromAny(test.Faker.Company().Name()),
		Clinicians:          []string{test.Faker.UUID().V4(), test.Faker.UUID().V4()},
		PreferredBgUnits:    glucose.Units(test.Faker.RandomStringElement([]string{string(glucose.MgdL), string(glucose.MmolL)})),
		GlycemicRangePreset: glucose.PresetADAStandard,
		Timezone:            pointer.FromAny(test.Faker.RandomStringElement(timezones)),
	}
}
