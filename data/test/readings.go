package test

import (
	"time"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/test"
)

// RandomCGMReadings returns a reading every five minutes in [start, end) with random in range values
func RandomCGMReadings(start, end time.Time) []glucose.Reading {
	var readings []glucose.Reading
	for t := start; t.Before(end); t = t.Add(5 * time.Minute) {
		readings = append(readings, glucose.Reading{
			Time:     t,
			Value:    float64(test.Faker.IntBetween(60, 260)),
			Units:    glucose.MgdL,
			Type:     glucose.TypeCBG,
			DeviceId: "DexG6_" + test.Faker.Numerify("####"),
		})
	}
	return readings
}

// ConstantCGMReadings returns a reading of value every five minutes in [start, end)
func ConstantCGMReadings(start, end time.Time, value float64) []glucose.Reading {
	var readings []glucose.Reading
	for t := start; t.Before(end); t = t.Add(5 * time.Minute) {
		readings = append(readings, glucose.Reading{
			Time:     t,
			Value:    value,
			Units:    glucose.MgdL,
			Type:     glucose.TypeCBG,
			DeviceId: "DexG6_1234",
		})
	}
	return readings
}
