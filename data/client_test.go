package data_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/data"
	"github.com/tidepool-org/blip/glucose"
)

var _ = Describe("HttpClient", func() {
	var server *httptest.Server
	var client *data.HttpClient
	var body string
	var status int
	var lastRequest *http.Request

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)

	BeforeEach(func() {
		status = http.StatusOK
		body = `[
			{"type": "cbg", "time": "2024-01-01T00:05:00Z", "value": 5.5, "units": "mmol/L", "deviceId": "DexG6_1"},
			{"type": "cbg", "time": "2024-01-01T00:20:00Z", "value": 6.1, "units": "mmol/L", "deviceId": "AbbottFreeStyleLibre_1", "sampleInterval": 900000},
			{"type": "smbg", "time": "2024-01-01T07:00:00.000Z", "value": "7.2", "units": "mmol/L"},
			{"type": "cbg", "time": "2024-01-01T08:00:00Z", "value": "high", "units": "mmol/L"},
			{"type": "cbg", "time": "not a time", "value": 5.0, "units": "mmol/L"},
			{"type": "basal", "time": "2024-01-01T08:00:00Z", "rate": 1.2}
		]`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastRequest = r
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		client = data.NewHttpClientBuilder().
			WithAddress(server.URL).
			WithHttpClient(server.Client()).
			WithAuthProvider(auth.NewDemoProvider("demo-token", "demo")).
			Build()
	})

	AfterEach(func() {
		server.Close()
	})

	It("requests glucose data with the session token", func() {
		_, err := client.ListReadings(context.Background(), "1234", start, end)
		Expect(err).ToNot(HaveOccurred())
		Expect(lastRequest.URL.Path).To(Equal("/data/1234"))
		Expect(lastRequest.URL.Query().Get("type")).To(Equal("cbg,smbg"))
		Expect(lastRequest.URL.Query().Get("startDate")).To(Equal("2024-01-01T00:00:00Z"))
		Expect(lastRequest.URL.Query().Get("endDate")).To(Equal("2024-01-15T00:00:00Z"))
		Expect(lastRequest.Header.Get(auth.TidepoolSessionTokenHeaderKey)).To(Equal("demo-token"))
	})

	It("decodes readings leniently", func() {
		readings, err := client.ListReadings(context.Background(), "1234", start, end)
		Expect(err).ToNot(HaveOccurred())
		Expect(readings).To(HaveLen(4))

		Expect(readings[0].Value).To(Equal(5.5))
		Expect(readings[0].Units).To(Equal(glucose.MmolL))
		Expect(readings[0].DeviceId).To(Equal("DexG6_1"))
		Expect(readings[0].SampleInterval).To(BeZero())

		Expect(readings[1].SampleInterval).To(Equal(15 * time.Minute))

		Expect(readings[2].Type).To(Equal(glucose.TypeSMBG))
		Expect(readings[2].Value).To(Equal(7.2))

		Expect(math.IsNaN(readings[3].Value)).To(BeTrue())
		Expect(readings[3].IsValid()).To(BeFalse())
	})

	It("returns no readings for unknown users", func() {
		status = http.StatusNotFound
		readings, err := client.ListReadings(context.Background(), "1234", start, end)
		Expect(err).ToNot(HaveOccurred())
		Expect(readings).To(BeEmpty())
	})

	It("fails on server errors", func() {
		status = http.StatusInternalServerError
		_, err := client.ListReadings(context.Background(), "1234", start, end)
		Expect(errors.Is(err, data.ErrUnexpectedResponse)).To(BeTrue())
	})

	It("fails on malformed responses", func() {
		body = `{"code": 1}`
		_, err := client.ListReadings(context.Background(), "1234", start, end)
		Expect(errors.Is(err, data.ErrUnexpectedResponse)).To(BeTrue())
	})
})
