// Package charts renders the stats views as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"qmoney/internal/core"
	"qmoney/internal/services"
)

// ErrNoData is returned when every value to plot is zero.
var ErrNoData = errors.New("nothing to plot")

const (
	dailyWidth  = 800
	dailyHeight = 400
	pieSize     = 600
	barColor    = "FFB7C5"
)

func background() chart.Style {
	return chart.Style{
		Padding: chart.Box{
			Top:    50,
			Left:   50,
			Right:  50,
			Bottom: 50,
		},
		FillColor: chart.ColorWhite,
	}
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// DailyBar draws one bar per day of the expense series. Bars are labelled
// MM-DD since the default font has no CJK glyphs.
func DailyBar(points []services.DailyPoint) ([]byte, error) {
	bars := make([]chart.Value, 0, len(points))
	var total float64
	for _, p := range points {
		total += p.Total
		label := p.Date
		if len(label) == len("2006-01-02") {
			label = label[5:]
		}
		bars = append(bars, chart.Value{
			Label: label,
			Value: p.Total,
			Style: chart.Style{
				FillColor:   color(barColor),
				StrokeColor: color(barColor),
			},
		})
	}
	if total <= 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Width:      dailyWidth,
		Height:     dailyHeight,
		BarWidth:   dailyWidth / (2 * len(bars)),
		Background: background(),
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return core.FormatAmount(f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render daily chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// CategoryPie draws the expense share of each category. Slices without a
// positive total are skipped.
func CategoryPie(slices []services.CategorySlice) ([]byte, error) {
	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		if s.Total <= 0 {
			continue
		}
		label := core.OtherCategoryID
		if opt, ok := core.LookupCategory(s.Category); ok {
			label = opt.ID
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", label, s.Share),
			Value: s.Total,
			Style: chart.Style{
				FillColor: color(s.Color),
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	pie := chart.PieChart{
		Width:      pieSize,
		Height:     pieSize,
		Values:     values,
		Background: background(),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render category chart: %w", err)
	}
	return buffer.Bytes(), nil
}
