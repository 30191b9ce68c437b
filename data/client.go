package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/glucose"
)

type HttpClient struct {
	httpClient *http.Client
	address    string
	provider   auth.Provider
}

var _ Client = &HttpClient{}

type httpClientBuilder struct {
	httpClient *http.Client
	address    string
	provider   auth.Provider
}

func NewHttpClientBuilder() *httpClientBuilder {
	return &httpClientBuilder{}
}

func (b *httpClientBuilder) WithHttpClient(httpClient *http.Client) *httpClientBuilder {
	b.httpClient = httpClient
	return b
}

func (b *httpClientBuilder) WithAddress(address string) *httpClientBuilder {
	b.address = address
	return b
}

func (b *httpClientBuilder) WithAuthProvider(provider auth.Provider) *httpClientBuilder {
	b.provider = provider
	return b
}

func (b *httpClientBuilder) Build() *HttpClient {
	if b.address == "" {
		panic("data client requires an address to be set")
	}
	if b.provider == nil {
		panic("data client requires an auth provider to be set")
	}
	if b.httpClient == nil {
		b.httpClient = http.DefaultClient
	}

	return &HttpClient{
		httpClient: b.httpClient,
		address:    strings.TrimSuffix(b.address, "/"),
		provider:   b.provider,
	}
}

func (h *HttpClient) ListReadings(ctx context.Context, userId string, start, end time.Time) ([]glucose.Reading, error) {
	session, err := h.provider.Session(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("type", strings.Join([]string{glucose.TypeCBG, glucose.TypeSMBG}, ","))
	query.Set("startDate", start.UTC().Format(time.RFC3339Nano))
	query.Set("endDate", end.UTC().Format(time.RFC3339Nano))
	u := fmt.Sprintf("%s/data/%s?%s", h.address, url.PathEscape(userId), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(auth.TidepoolSessionTokenHeaderKey, session.Token())

	res, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return []glucose.Reading{}, nil
	default:
		return nil, fmt.Errorf("%w: status code %d", ErrUnexpectedResponse, res.StatusCode)
	}

	var raw []map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	return DecodeReadings(raw), nil
}

type datum struct {
	Type     string      `mapstructure:"type"`
	Time     string      `mapstructure:"time"`
	Value    interface{} `mapstructure:"value"`
	Units    string      `mapstructure:"units"`
	DeviceId string      `mapstructure:"deviceId"`
	// milliseconds
	SampleInterval interface{} `mapstructure:"sampleInterval"`
}

// DecodeReadings converts raw datums to readings. Datums of other types or
// without a parseable time are dropped, datums with an unusable value are kept
// as invalid readings.
func DecodeReadings(raw []map[string]interface{}) []glucose.Reading {
	readings := make([]glucose.Reading, 0, len(raw))
	for _, r := range raw {
		d := datum{}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &d,
		})
		if err != nil || decoder.Decode(r) != nil {
			continue
		}
		if d.Type != glucose.TypeCBG && d.Type != glucose.TypeSMBG {
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, d.Time)
		if err != nil {
			continue
		}

		reading := glucose.Reading{
			Time:     t,
			Value:    toFloat(d.Value),
			Type:     d.Type,
			DeviceId: d.DeviceId,
		}
		if interval := toFloat(d.SampleInterval); interval > 0 {
			reading.SampleInterval = time.Duration(interval * float64(time.Millisecond))
		}
		if units, err := glucose.ParseUnits(d.Units); err == nil {
			reading.Units = units
		} else {
			reading.Value = math.NaN()
		}
		readings = append(readings, reading)
	}
	return readings
}

func toFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
