package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var palette = []string{
	"#d62728", "#1f77b4", "#2ca02c", "#ff7f0e", "#9467bd", "#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Detail is the input of one per-item diagnostic chart
type Detail struct {
	Article       int64
	Branch        int64
	Start         time.Time // Daily[0] 날짜
	Daily         []float64
	Forecast      float64
	Average       float64
	SalesLast     float64
	SalesPrevious float64
	SalesSameYear float64
}

// Renderer draws PNG charts with the embedded Go font
// truetype.Font는 공유, font.Face는 렌더링마다 생성 (Face는 goroutine-safe 아님)
type Renderer struct {
	font *truetype.Font
}

// NewRenderer 새 렌더러 생성
func NewRenderer() (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{font: f}, nil
}

func (r *Renderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

type rect struct {
	x, y, w, h float64
}

const (
	detailWidth  = 800
	detailHeight = 600
	titleHeight  = 36
)

// RenderDetail draws the 2x2 diagnostic chart of one (article, branch)
func (r *Renderer) RenderDetail(d Detail) ([]byte, error) {
	dc := gg.NewContext(detailWidth, detailHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetFontFace(r.face(16))
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("Demanda Articulo %d - Sucursal %d", d.Article, d.Branch),
		detailWidth/2, titleHeight/2, 0.5, 0.5)

	dc.SetFontFace(r.face(11))
	pw := float64(detailWidth) / 2
	ph := float64(detailHeight-titleHeight) / 2
	cell := func(row, col int) rect {
		return rect{x: float64(col) * pw, y: titleHeight + float64(row)*ph, w: pw, h: ph}
	}

	// 일별 판매 + 7일 이동평균
	plot := panel(dc, cell(0, 0), "Ventas Diarias")
	top := niceMax(d.Daily...)
	axisLabels(dc, plot, top)
	drawLine(dc, plot, d.Daily, top, palette[0], false)
	drawLine(dc, plot, MovingAverage(d.Daily, 7), top, "#000000", true)

	// 주별 판매 (ISO 주차)
	weeks, totals := WeeklyTotals(d.Start, d.Daily)
	labels := make([]string, len(weeks))
	for i, w := range weeks {
		labels[i] = strconv.Itoa(w)
	}
	plot = panel(dc, cell(0, 1), "Ventas Semanales")
	drawBars(dc, plot, labels, totals, palette[1:6])

	plot = panel(dc, cell(1, 0), "Forecast vs Ventas Anteriores")
	drawBars(dc, plot,
		[]string{"Forecast", "Actual", "Anterior", "Año Ant"},
		[]float64{d.Forecast, d.SalesLast, d.SalesPrevious, d.SalesSameYear},
		palette[2:6])

	last30, before := splitTail(d.Daily, 30)
	plot = panel(dc, cell(1, 1), "Comparación de Ventas")
	drawBars(dc, plot,
		[]string{"Últimos 30", "Anteriores", "Average"},
		[]float64{sum(last30), sum(before), d.Average},
		palette[0:3])

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMini draws the compact header bar chart (no axes)
func (r *Renderer) RenderMini(values []float64) ([]byte, error) {
	const w, h = 300, 100
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if len(values) > 0 {
		top := niceMax(values...)
		slot := float64(w) / float64(len(values))
		for i, v := range values {
			bh := math.Max(0, v) / top * (h - 10)
			dc.SetHexColor(palette[i%6])
			dc.DrawRectangle(float64(i)*slot+slot*0.15, h-bh, slot*0.7, bh)
			dc.Fill()
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode returns data as base64; payloads longer than maxBytes are rejected
func Encode(data []byte, maxBytes int) (string, error) {
	s := base64.StdEncoding.EncodeToString(data)
	if maxBytes > 0 && len(s) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes > %d", ErrPayloadTooLarge, len(s), maxBytes)
	}
	return s, nil
}

// panel draws a titled frame and returns the plotting area inside it
func panel(dc *gg.Context, c rect, title string) rect {
	const padL, padR, padT, padB = 44, 14, 26, 30

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, c.x+c.w/2, c.y+12, 0.5, 0.5)

	plot := rect{x: c.x + padL, y: c.y + padT, w: c.w - padL - padR, h: c.h - padT - padB}
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(1)
	dc.DrawLine(plot.x, plot.y, plot.x, plot.y+plot.h)
	dc.DrawLine(plot.x, plot.y+plot.h, plot.x+plot.w, plot.y+plot.h)
	dc.Stroke()
	return plot
}

func axisLabels(dc *gg.Context, plot rect, top float64) {
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawStringAnchored(formatValue(top), plot.x-4, plot.y, 1, 0.5)
	dc.DrawStringAnchored("0", plot.x-4, plot.y+plot.h, 1, 0.5)
}

// drawLine plots values across the full width; NaN values break the line
func drawLine(dc *gg.Context, plot rect, values []float64, top float64, hex string, dashed bool) {
	if len(values) == 0 {
		return
	}
	step := plot.w
	if len(values) > 1 {
		step = plot.w / float64(len(values)-1)
	}

	dc.SetHexColor(hex)
	dc.SetLineWidth(1.5)
	if dashed {
		dc.SetDash(5, 3)
	}
	pen := false
	for i, v := range values {
		if math.IsNaN(v) {
			pen = false
			continue
		}
		x := plot.x + float64(i)*step
		y := plot.y + plot.h - math.Max(0, v)/top*plot.h
		if pen {
			dc.LineTo(x, y)
		} else {
			dc.MoveTo(x, y)
			pen = true
		}
	}
	dc.Stroke()
	dc.SetDash()
}

func drawBars(dc *gg.Context, plot rect, labels []string, values []float64, colors []string) {
	if len(values) == 0 {
		return
	}
	top := niceMax(values...)
	axisLabels(dc, plot, top)

	slot := plot.w / float64(len(values))
	for i, v := range values {
		bh := math.Max(0, v) / top * plot.h
		x := plot.x + float64(i)*slot
		dc.SetHexColor(colors[i%len(colors)])
		dc.DrawRectangle(x+slot*0.15, plot.y+plot.h-bh, slot*0.7, bh)
		dc.Fill()

		dc.SetRGB(0.2, 0.2, 0.2)
		if i < len(labels) {
			dc.DrawStringAnchored(labels[i], x+slot/2, plot.y+plot.h+12, 0.5, 0.5)
		}
	}
}

// niceMax returns a positive upper bound for the y axis
func niceMax(values ...float64) float64 {
	top := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && v > top {
			top = v
		}
	}
	if top == 0 {
		return 1
	}
	return top * 1.1
}

func formatValue(v float64) string {
	if v >= 100 {
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
