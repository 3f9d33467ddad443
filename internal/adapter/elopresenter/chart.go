package elopresenter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/elo-ladder-bot/pkg/elodto"
)

// ErrEmptyChart is returned when a leaderboard has no rows to draw.
var ErrEmptyChart = errors.New("leaderboard has no rows")

const (
	chartPadding    = 16
	chartRowHeight  = 24
	chartHeader     = 28
	chartLabelWidth = 260
	chartBarRadius  = 4
)

var (
	chartBackground = "#1f2330"
	chartSingles    = "#4f8ef7"
	chartDoubles    = "#f2a541"
	chartText       = color.RGBA{R: 0xee, G: 0xee, B: 0xf2, A: 0xff}
	chartMuted      = color.RGBA{R: 0x9a, G: 0xa0, B: 0xb4, A: 0xff}
)

// ChartRenderer draws a leaderboard as horizontal rating bars.
type ChartRenderer struct {
	Width int
}

func NewChartRenderer(width int) *ChartRenderer {
	if width < chartLabelWidth+120 {
		width = 640
	}
	return &ChartRenderer{Width: width}
}

type chartSection struct {
	title string
	fill  string
	rows  []elodto.Row
}

// LeaderboardPNG returns the PNG encoding of the chart. tag turns member keys
// into labels.
func (c *ChartRenderer) LeaderboardPNG(lb elodto.Leaderboard, tag func(string) string) ([]byte, error) {
	sections := make([]chartSection, 0, 2)
	if len(lb.Singles) > 0 {
		sections = append(sections, chartSection{title: "Singles", fill: chartSingles, rows: lb.Singles})
	}
	if len(lb.Doubles) > 0 {
		sections = append(sections, chartSection{title: "Doubles", fill: chartDoubles, rows: lb.Doubles})
	}
	if len(sections) == 0 {
		return nil, ErrEmptyChart
	}
	if tag == nil {
		tag = func(s string) string { return s }
	}

	lo, hi := ratingRange(sections)
	width := c.Width
	height := chartPadding*2 + chartHeader
	for _, s := range sections {
		height += chartHeader + len(s.rows)*chartRowHeight
	}

	barX := chartPadding + chartLabelWidth
	barMax := width - barX - chartPadding - 48

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&svg, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, width, height, chartBackground)

	type label struct {
		text  string
		x, y  int
		muted bool
	}
	labels := []label{{text: lb.GameType, x: chartPadding, y: chartPadding + 16}}

	y := chartPadding + chartHeader
	for _, s := range sections {
		labels = append(labels, label{text: s.title, x: chartPadding, y: y + 18, muted: true})
		y += chartHeader
		for _, row := range s.rows {
			w := barWidth(row.Rating, lo, hi, barMax)
			fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" rx="%d" ry="%d" fill="%s"/>`,
				barX, y+3, w, chartRowHeight-6, chartBarRadius, chartBarRadius, s.fill)
			labels = append(labels,
				label{text: fmt.Sprintf("%d. %s", row.Rank, tag(row.Tag)), x: chartPadding, y: y + 16},
				label{text: fmt.Sprintf("%d", int(math.Round(row.Rating))), x: barX + w + 6, y: y + 16, muted: true},
			)
			y += chartRowHeight
		}
	}
	svg.WriteString(`</svg>`)

	img, err := rasterize(svg.String(), width, height)
	if err != nil {
		return nil, err
	}

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	for _, l := range labels {
		clr := chartText
		if l.muted {
			clr = chartMuted
		}
		drawer.Src = image.NewUniform(clr)
		drawer.Dot = fixed.P(l.x, l.y)
		drawer.DrawString(truncateLabel(drawer.Face, l.text, chartLabelWidth-8))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func rasterize(svg string, width, height int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse chart svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, imagedraw.Src)
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func ratingRange(sections []chartSection) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range sections {
		for _, r := range s.rows {
			lo = math.Min(lo, r.Rating)
			hi = math.Max(hi, r.Rating)
		}
	}
	return lo, hi
}

// barWidth maps a rating onto [max/5, max] so the lowest row still shows.
func barWidth(rating, lo, hi float64, max int) int {
	if max <= 0 {
		return 1
	}
	floor := float64(max) / 5
	if hi-lo < 1e-9 {
		return max
	}
	w := floor + (rating-lo)/(hi-lo)*(float64(max)-floor)
	return int(math.Round(w))
}

func truncateLabel(face font.Face, text string, maxWidth int) string {
	d := font.Drawer{Face: face}
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if d.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return "..."
}
