package plot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"impedancecli/internal/config"
	"impedancecli/pkg/contracts/domain"
)

const (
	barSpacing  = 6
	sideMargin  = 140
	headroom    = 1.1
	lineHeight  = 16
	annotationX = 72
	annotationY = 56
	textPadding = 6
)

// Options controls figure geometry.
type Options struct {
	Width    int
	Height   int
	BarWidth int
	// YMax fixes the y axis to [0, YMax]; zero scales to the data.
	YMax float64
}

// OptionsFromConfig maps the chart section of the application config.
func OptionsFromConfig(cfg config.ChartConfig) Options {
	return Options{Width: cfg.Width, Height: cfg.Height, BarWidth: cfg.BarWidth, YMax: cfg.YMax}
}

// Renderer draws one bar chart per measurement file.
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer, filling unset geometry with defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = config.DefaultChartWidth
	}
	if opts.Height <= 0 {
		opts.Height = config.DefaultChartHeight
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = config.DefaultBarWidth
	}
	if !finite(opts.YMax) || opts.YMax < 0 {
		opts.YMax = 0
	}
	return &Renderer{opts: opts}
}

// FigureName is the file name of the figure for the file at position index.
func FigureName(baseName string, index int) string {
	return fmt.Sprintf("%s - fig %d.png", baseName, index)
}

// Title is the chart title: the file base name and the charted column.
func Title(baseName, column string) string {
	return fmt.Sprintf("%s - %s", baseName, column)
}

// Annotations are the statistics lines printed on the figure.
func Annotations(s *domain.ChannelSummary) []string {
	return []string{
		"Std: " + domain.FormatValue(s.StdDev),
		"Average: " + domain.FormatValue(s.Mean),
		fmt.Sprintf("Avg of channels w/ <%gMOhms: %s", s.Threshold, s.Filtered),
	}
}

// YRange returns the y axis bounds for a summary.
func (r *Renderer) YRange(s *domain.ChannelSummary) (float64, float64) {
	if r.opts.YMax > 0 {
		return 0, r.opts.YMax
	}
	top := math.Max(s.Max, s.Threshold)
	if !finite(top) || top <= 0 {
		top = 1
	}
	return 0, top * headroom
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Render draws the summary as a PNG into w.
func (r *Renderer) Render(title string, s *domain.ChannelSummary, w io.Writer) error {
	if len(s.Values) == 0 {
		return fmt.Errorf("no channels to plot for %s", s.File)
	}
	if len(s.Channels) != len(s.Values) {
		return fmt.Errorf("%s has %d channel labels for %d values", s.File, len(s.Channels), len(s.Values))
	}

	// go-chart never returns on a non-finite bar or axis bound
	bars := make([]chart.Value, len(s.Values))
	for i, v := range s.Values {
		if !finite(v) {
			return fmt.Errorf("%s channel %s has non-finite value %v", s.File, s.Channels[i], v)
		}
		bars[i] = chart.Value{
			Label: s.Channels[i],
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.ColorRed,
				StrokeColor: drawing.ColorRed,
				StrokeWidth: 1,
			},
		}
	}

	yMin, yMax := r.YRange(s)
	if !finite(yMax) {
		return fmt.Errorf("%s has no finite y axis bound", s.File)
	}
	width := r.opts.Width
	if need := len(bars)*(r.opts.BarWidth+barSpacing) + sideMargin; need > width {
		width = need
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     r.opts.Height,
		BarWidth:   r.opts.BarWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24},
		},
		YAxis: chart.YAxis{
			Name:  s.Column,
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Bars: bars,
	}

	var raw bytes.Buffer
	if err := graph.Render(chart.PNG, &raw); err != nil {
		return fmt.Errorf("failed to render chart %q: %w", title, err)
	}

	img, err := png.Decode(&raw)
	if err != nil {
		return fmt.Errorf("failed to decode rendered chart: %w", err)
	}

	return png.Encode(w, annotate(img, Annotations(s)))
}

// WriteFigure renders the summary and writes it atomically to path.
func (r *Renderer) WriteFigure(path, title string, s *domain.ChannelSummary) error {
	var buf bytes.Buffer
	if err := r.Render(title, s, &buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fig-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp figure: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write figure: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close figure: %w", err)
	}
	if err := os.Chmod(tmpPath, config.FilePermissions); err != nil {
		return fmt.Errorf("failed to set figure permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move figure into place: %w", err)
	}
	return nil
}

// annotate prints lines in the upper left of the plot area over a light box.
func annotate(img image.Image, lines []string) image.Image {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)

	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: rgba, Src: image.NewUniform(color.RGBA{A: 255}), Face: face}

	widest := 0
	for _, l := range lines {
		if w := dr.MeasureString(l).Ceil(); w > widest {
			widest = w
		}
	}

	x := b.Min.X + annotationX
	y := b.Min.Y + annotationY
	box := image.Rect(x-textPadding, y-face.Metrics().Ascent.Ceil()-textPadding,
		x+widest+textPadding, y+(len(lines)-1)*lineHeight+textPadding)
	draw.Draw(rgba, box, image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 220}), image.Point{}, draw.Over)

	for i, l := range lines {
		dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + i*lineHeight)}
		dr.DrawString(l)
	}
	return rgba
}
