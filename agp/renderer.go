package agp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
)

const pngContentType = "image/png"

var ErrNothingToRender = errors.New("nothing to render")

type Renderer interface {
	Render(imageType ImageType, report *Report) ([]byte, error)
}

var (
	colorOuterPercentiles = drawing.ColorFromHex("A1CDF4")
	colorInnerPercentiles = drawing.ColorFromHex("5499D6")
	colorMedian           = drawing.ColorFromHex("1F3B70")
	colorTargetBounds     = drawing.ColorFromHex("76D3A6")

	bandColors = map[glucose.Band]drawing.Color{
		glucose.BandVeryLow:  drawing.ColorFromHex("E74C3C"),
		glucose.BandLow:      drawing.ColorFromHex("FF8B7C"),
		glucose.BandTarget:   drawing.ColorFromHex("76D3A6"),
		glucose.BandHigh:     drawing.ColorFromHex("BB9AE7"),
		glucose.BandVeryHigh: drawing.ColorFromHex("8C65D6"),
	}
)

// ChartRenderer renders report images as PNG charts
type ChartRenderer struct {
	Width  int
	Height int
}

var _ Renderer = &ChartRenderer{}

func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: 1024, Height: 400}
}

func (c *ChartRenderer) Render(imageType ImageType, report *Report) ([]byte, error) {
	switch imageType {
	case ImageAmbulatoryGlucoseProfile:
		return c.renderAmbulatoryGlucoseProfile(report)
	case ImagePercentInRanges:
		return c.renderPercentInRanges(report)
	case ImageDailyGlucoseProfiles:
		return c.renderDailyGlucoseProfiles(report)
	}
	return nil, imageType.Validate()
}

func (c *ChartRenderer) renderAmbulatoryGlucoseProfile(report *Report) ([]byte, error) {
	percentiles := []struct {
		name  string
		value func(stats.PercentileBin) *float64
		style chart.Style
	}{
		{"5%", func(b stats.PercentileBin) *float64 { return b.P5 }, chart.Style{StrokeColor: colorOuterPercentiles, StrokeWidth: 1}},
		{"25%", func(b stats.PercentileBin) *float64 { return b.P25 }, chart.Style{StrokeColor: colorInnerPercentiles, StrokeWidth: 2}},
		{"50%", func(b stats.PercentileBin) *float64 { return b.P50 }, chart.Style{StrokeColor: colorMedian, StrokeWidth: 3}},
		{"75%", func(b stats.PercentileBin) *float64 { return b.P75 }, chart.Style{StrokeColor: colorInnerPercentiles, StrokeWidth: 2}},
		{"95%", func(b stats.PercentileBin) *float64 { return b.P95 }, chart.Style{StrokeColor: colorOuterPercentiles, StrokeWidth: 1}},
	}

	var series []chart.Series
	for _, p := range percentiles {
		var xs, ys []float64
		for _, bin := range report.Percentiles {
			if v := p.value(bin); v != nil {
				xs = append(xs, bin.Midpoint().Minutes())
				ys = append(ys, *v)
			}
		}
		if len(xs) < 2 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    p.name,
			XValues: xs,
			YValues: ys,
			Style:   p.style,
		})
	}
	if len(series) == 0 {
		return nil, ErrNothingToRender
	}

	return c.renderTimeOfDayChart(report.Bounds, append(series, targetSeries(report.Bounds)...))
}

func (c *ChartRenderer) renderDailyGlucoseProfiles(report *Report) ([]byte, error) {
	var series []chart.Series
	for _, day := range report.Daily {
		readings := make([]glucose.Reading, 0, len(day.Readings))
		for _, r := range day.Readings {
			if r.IsValid() {
				readings = append(readings, r)
			}
		}
		if len(readings) < 2 {
			continue
		}
		sort.Slice(readings, func(i, j int) bool {
			return readings[i].Time.Before(readings[j].Time)
		})

		xs := make([]float64, len(readings))
		ys := make([]float64, len(readings))
		for i, r := range readings {
			local := r.Time.In(report.Period.Location)
			xs[i] = float64(local.Hour()*60 + local.Minute())
			ys[i] = r.ValueIn(report.Bounds.Units)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    string(day.Date),
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: colorInnerPercentiles, StrokeWidth: 1},
		})
	}
	if len(series) == 0 {
		return nil, ErrNothingToRender
	}

	return c.renderTimeOfDayChart(report.Bounds, append(series, targetSeries(report.Bounds)...))
}

func (c *ChartRenderer) renderTimeOfDayChart(bounds glucose.BgBounds, series []chart.Series) ([]byte, error) {
	graph := chart.Chart{
		Width:  c.Width,
		Height: c.Height,
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 24 * 60},
			Ticks: hourTicks(),
		},
		YAxis: chart.YAxis{
			Name:  string(bounds.Units),
			Range: &chart.ContinuousRange{Min: 0, Max: maxGlucose(bounds.Units)},
			ValueFormatter: func(v interface{}) string {
				if value, ok := v.(float64); ok {
					return stats.FormatGlucose(value, bounds.Units)
				}
				return chart.FloatValueFormatter(v)
			},
		},
		Series: series,
	}

	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *ChartRenderer) renderPercentInRanges(report *Report) ([]byte, error) {
	if report.Summary == nil || report.Summary.TimeInRange.Total == 0 {
		return nil, ErrNothingToRender
	}

	bars := make([]chart.Value, 0, len(glucose.Bands))
	for _, band := range glucose.Bands {
		percent := report.Summary.TimeInRange.Percent(band)
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %s%%", band.Label(), stats.FormatPercent(*percent, 0)),
			Value: *percent,
			Style: chart.Style{FillColor: bandColors[band], StrokeColor: bandColors[band]},
		})
	}

	graph := chart.BarChart{
		Width:    c.Width,
		Height:   c.Height,
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func targetSeries(bounds glucose.BgBounds) []chart.Series {
	style := chart.Style{
		StrokeColor:     colorTargetBounds,
		StrokeWidth:     1,
		StrokeDashArray: []float64{5, 5},
	}
	return []chart.Series{
		chart.ContinuousSeries{Name: "target lower bound", XValues: []float64{0, 24 * 60}, YValues: []float64{bounds.TargetLowerBound, bounds.TargetLowerBound}, Style: style},
		chart.ContinuousSeries{Name: "target upper bound", XValues: []float64{0, 24 * 60}, YValues: []float64{bounds.TargetUpperBound, bounds.TargetUpperBound}, Style: style},
	}
}

func hourTicks() []chart.Tick {
	ticks := make([]chart.Tick, 0, 9)
	for hour := 0; hour <= 24; hour += 3 {
		ticks = append(ticks, chart.Tick{Value: float64(hour * 60), Label: fmt.Sprintf("%02d:00", hour%24)})
	}
	return ticks
}

func maxGlucose(units glucose.Units) float64 {
	if units == glucose.MmolL {
		return 22.2
	}
	return 400
}
