// Package charts renders the run's five result charts as PNGs in a
// light or dark color theme.
package charts

import (
	"fmt"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fraudscope/internal/models"
	"fraudscope/internal/storage"
)

// Theme is one of the two supported chart color schemes.
type Theme struct {
	Name       string
	Background drawing.Color
	Canvas     drawing.Color
	Text       drawing.Color
	Primary    drawing.Color
	Accent     drawing.Color
	Normal     drawing.Color
	Anomaly    drawing.Color
}

var (
	Light = Theme{
		Name:       "light",
		Background: drawing.ColorWhite,
		Canvas:     drawing.ColorFromHex("f7f7f7"),
		Text:       drawing.ColorFromHex("333333"),
		Primary:    drawing.ColorFromHex("4682b4"),
		Accent:     drawing.ColorFromHex("f57c00"),
		Normal:     drawing.ColorFromHex("7cb342"),
		Anomaly:    drawing.ColorFromHex("d32f2f"),
	}
	Dark = Theme{
		Name:       "dark",
		Background: drawing.ColorFromHex("1e1e2e"),
		Canvas:     drawing.ColorFromHex("2a2a3c"),
		Text:       drawing.ColorFromHex("e0e0e0"),
		Primary:    drawing.ColorFromHex("82b1ff"),
		Accent:     drawing.ColorFromHex("ffb74d"),
		Normal:     drawing.ColorFromHex("9ccc65"),
		Anomaly:    drawing.ColorFromHex("ef5350"),
	}
)

// ThemeByName returns the named theme, defaulting to light.
func ThemeByName(name string) Theme {
	if name == "dark" {
		return Dark
	}
	return Light
}

const (
	chartWidth  = 800
	chartHeight = 500
)

// Renderer writes chart PNGs into the output store.
type Renderer struct {
	store *storage.Store
}

func NewRenderer(store *storage.Store) *Renderer {
	return &Renderer{store: store}
}

// RenderAll produces every chart for one run and returns chart key to
// filename.
func (r *Renderer) RenderAll(runID string, results []models.AnomalyResult, theme Theme) (map[string]string, error) {
	renders := []struct {
		key    string
		render func(*os.File) error
	}{
		{"risk_distribution", func(f *os.File) error { return riskHistogram(results, theme).Render(chart.PNG, f) }},
		{"amount_vs_risk", func(f *os.File) error { return amountScatter(results, theme).Render(chart.PNG, f) }},
		{"anomaly_pie", func(f *os.File) error { return anomalyPie(results, theme).Render(chart.PNG, f) }},
		{"risk_bar", func(f *os.File) error { return riskLevelBar(results, theme).Render(chart.PNG, f) }},
		{"time_series", func(f *os.File) error { return volumeSeries(results, theme).Render(chart.PNG, f) }},
	}

	out := make(map[string]string, len(renders))
	for _, item := range renders {
		filename := fmt.Sprintf("%s_%s_%s.png", runID, item.key, theme.Name)
		path, err := r.store.OutputPath(filename)
		if err != nil {
			return nil, err
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("charts: create %s: %w", path, err)
		}
		if err := item.render(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("charts: render %s: %w", item.key, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		out[item.key] = filename
	}
	return out, nil
}

func baseStyle(theme Theme) (chart.Style, chart.Style) {
	bg := chart.Style{FillColor: theme.Background}
	canvas := chart.Style{FillColor: theme.Canvas}
	return bg, canvas
}

func axisStyle(theme Theme) chart.Style {
	return chart.Style{FontColor: theme.Text, StrokeColor: theme.Text}
}

// riskHistogram buckets risk scores into ten-point bins.
func riskHistogram(results []models.AnomalyResult, theme Theme) *chart.BarChart {
	bins := make([]int, 10)
	for _, res := range results {
		bin := res.RiskScore / 10
		if bin > 9 {
			bin = 9
		}
		bins[bin]++
	}

	bars := make([]chart.Value, len(bins))
	for i, count := range bins {
		bars[i] = chart.Value{
			Value: float64(count),
			Label: fmt.Sprintf("%d-%d", i*10, i*10+9),
			Style: chart.Style{FillColor: theme.Primary, StrokeColor: theme.Primary},
		}
	}

	bg, canvas := baseStyle(theme)
	return &chart.BarChart{
		Title:      "Risk Score Distribution",
		TitleStyle: chart.Style{FontColor: theme.Text},
		Background: bg,
		Canvas:     canvas,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   50,
		XAxis:      axisStyle(theme),
		YAxis:      chart.YAxis{Style: axisStyle(theme)},
		Bars:       bars,
	}
}

// amountScatter plots transaction amount against risk score, anomalies
// in the theme's anomaly color.
func amountScatter(results []models.AnomalyResult, theme Theme) *chart.Chart {
	var normX, normY, anomX, anomY []float64
	for _, res := range results {
		if res.IsAnomaly {
			anomX = append(anomX, res.Amount)
			anomY = append(anomY, float64(res.RiskScore))
		} else {
			normX = append(normX, res.Amount)
			normY = append(normY, float64(res.RiskScore))
		}
	}

	dotSeries := func(name string, xs, ys []float64, color drawing.Color) chart.Series {
		xs, ys = padPoints(xs, ys)
		return chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    color,
			},
		}
	}

	series := []chart.Series{}
	if len(normX) > 0 {
		series = append(series, dotSeries("normal", normX, normY, theme.Normal))
	}
	if len(anomX) > 0 {
		series = append(series, dotSeries("anomaly", anomX, anomY, theme.Anomaly))
	}

	bg, canvas := baseStyle(theme)
	return &chart.Chart{
		Title:      "Amount vs Risk",
		TitleStyle: chart.Style{FontColor: theme.Text},
		Background: bg,
		Canvas:     canvas,
		Width:      chartWidth,
		Height:     chartHeight,
		XAxis:      chart.XAxis{Style: axisStyle(theme)},
		YAxis:      chart.YAxis{Style: axisStyle(theme), Range: &chart.ContinuousRange{Min: 0, Max: 100}},
		Series:     series,
	}
}

func anomalyPie(results []models.AnomalyResult, theme Theme) *chart.PieChart {
	anomalies := 0
	for _, res := range results {
		if res.IsAnomaly {
			anomalies++
		}
	}
	normal := len(results) - anomalies

	var values []chart.Value
	if anomalies > 0 {
		values = append(values, chart.Value{
			Value: float64(anomalies),
			Label: fmt.Sprintf("Anomaly (%d)", anomalies),
			Style: chart.Style{FillColor: theme.Anomaly, FontColor: theme.Text},
		})
	}
	if normal > 0 {
		values = append(values, chart.Value{
			Value: float64(normal),
			Label: fmt.Sprintf("Normal (%d)", normal),
			Style: chart.Style{FillColor: theme.Normal, FontColor: theme.Text},
		})
	}

	bg, canvas := baseStyle(theme)
	return &chart.PieChart{
		Title:      "Anomaly Breakdown",
		TitleStyle: chart.Style{FontColor: theme.Text},
		Background: bg,
		Canvas:     canvas,
		Width:      chartHeight,
		Height:     chartHeight,
		Values:     values,
	}
}

func riskLevelBar(results []models.AnomalyResult, theme Theme) *chart.BarChart {
	counts := map[models.RiskLevel]int{}
	for _, res := range results {
		counts[res.RiskLevel]++
	}

	levels := []struct {
		level models.RiskLevel
		label string
		color drawing.Color
	}{
		{models.RiskLevelLow, "Low", theme.Normal},
		{models.RiskLevelMedium, "Medium", theme.Accent},
		{models.RiskLevelHigh, "High", theme.Anomaly},
		{models.RiskLevelCritical, "Critical", theme.Anomaly},
	}

	bars := make([]chart.Value, len(levels))
	for i, l := range levels {
		bars[i] = chart.Value{
			Value: float64(counts[l.level]),
			Label: l.label,
			Style: chart.Style{FillColor: l.color, StrokeColor: l.color},
		}
	}

	bg, canvas := baseStyle(theme)
	return &chart.BarChart{
		Title:      "Risk Level Distribution",
		TitleStyle: chart.Style{FontColor: theme.Text},
		Background: bg,
		Canvas:     canvas,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   80,
		XAxis:      axisStyle(theme),
		YAxis:      chart.YAxis{Style: axisStyle(theme)},
		Bars:       bars,
	}
}

// volumeSeries plots transaction counts per ten-record bucket in batch
// order, mirroring the upload's own ordering.
func volumeSeries(results []models.AnomalyResult, theme Theme) *chart.Chart {
	const bucketSize = 10
	buckets := (len(results) + bucketSize - 1) / bucketSize
	xs := make([]float64, buckets)
	ys := make([]float64, buckets)
	for i := range results {
		ys[i/bucketSize]++
	}
	maxY := 0.0
	for i := range xs {
		xs[i] = float64(i)
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}
	seriesX, seriesY := padPoints(xs, ys)

	bg, canvas := baseStyle(theme)
	return &chart.Chart{
		Title:      "Transactions Over Time",
		TitleStyle: chart.Style{FontColor: theme.Text},
		Background: bg,
		Canvas:     canvas,
		Width:      chartWidth,
		Height:     chartHeight,
		XAxis:      chart.XAxis{Style: axisStyle(theme)},
		YAxis:      chart.YAxis{Style: axisStyle(theme), Range: &chart.ContinuousRange{Min: 0, Max: maxY + 1}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: seriesX,
				YValues: seriesY,
				Style: chart.Style{
					StrokeColor: theme.Primary,
					StrokeWidth: 2,
				},
			},
		},
	}
}

// padPoints widens a degenerate x range so go-chart has something to
// draw, repeating the last y to keep the series lengths matched.
func padPoints(xs, ys []float64) ([]float64, []float64) {
	if len(xs) == 0 {
		return xs, ys
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return xs, ys
		}
	}
	xs = append(append([]float64{}, xs...), xs[0]+1)
	ys = append(append([]float64{}, ys...), ys[len(ys)-1])
	return xs, ys
}
