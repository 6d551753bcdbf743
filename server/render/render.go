// Package render draws analysis overlays onto video frames, for debug viewing
// and for the annotated stream that the web UI shows.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/cyclopcam/gaze/server/attention"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	boxLineWidth = 2
	arrowLength  = 30
	// Vertical offset of the arrow origin below the top edge of the box
	arrowOriginY = 20
)

// One color per attention label
var labelColors = map[attention.Label]color.RGBA{
	attention.LabelAttentive:    {0, 200, 0, 255},
	attention.LabelDistracted:   {230, 200, 0, 255},
	attention.LabelNotAttentive: {220, 0, 0, 255},
}

// DrawAnalysis draws the results of one analyzed frame over img, and returns
// the annotated image. img is not modified.
func DrawAnalysis(img image.Image, analysis *attention.FrameAnalysis) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(basicfont.Face7x13)

	for i := range analysis.Results {
		drawPerson(dc, &analysis.Results[i])
	}
	drawCounts(dc, &analysis.Counts)

	return dc.Image()
}

func drawPerson(dc *gg.Context, r *attention.Result) {
	col := labelColors[r.Label]
	x1 := float64(r.Box.X)
	y1 := float64(r.Box.Y)
	w := float64(r.Box.Width)
	h := float64(r.Box.Height)

	dc.SetColor(col)
	dc.SetLineWidth(boxLineWidth)
	dc.DrawRectangle(x1, y1, w, h)
	dc.Stroke()

	label := fmt.Sprintf("#%v %v", r.ID, r.Label)
	if r.Confidence > 0 {
		label = fmt.Sprintf("#%v %v (%.2f)", r.ID, r.Label, r.Confidence)
	}
	textW, textH := dc.MeasureString(label)
	dc.DrawRectangle(x1, y1-textH-6, textW+8, textH+6)
	dc.Fill()
	dc.SetRGB255(255, 255, 255)
	dc.DrawString(label, x1+4, y1-5)

	if r.Direction != nil {
		// Arrow showing which way the head is pointing
		originX := x1 + w/2
		originY := y1 + arrowOriginY
		dx := float64(r.Direction[0])
		dy := float64(r.Direction[1])
		endX := originX + dx*arrowLength
		endY := originY + dy*arrowLength
		dc.SetColor(col)
		dc.DrawLine(originX, originY, endX, endY)
		dc.Stroke()
		drawArrowHead(dc, originX, originY, endX, endY)
	}
}

// Two short strokes angled back from the arrow tip
func drawArrowHead(dc *gg.Context, fromX, fromY, toX, toY float64) {
	angle := math.Atan2(toY-fromY, toX-fromX)
	const headLength = 8
	const headAngle = math.Pi / 6
	for _, a := range []float64{angle + math.Pi - headAngle, angle + math.Pi + headAngle} {
		dc.DrawLine(toX, toY, toX+headLength*math.Cos(a), toY+headLength*math.Sin(a))
	}
	dc.Stroke()
}

// Stats banner in the top-right corner
func drawCounts(dc *gg.Context, counts *attention.Counts) {
	text := fmt.Sprintf("Attentive: %v | Distracted: %v | No face: %v | Total: %v",
		counts.Attentive, counts.Distracted, counts.NotAttentive, counts.Total)
	textW, textH := dc.MeasureString(text)
	x := float64(dc.Width()) - textW - 20
	y := 10 + textH
	dc.SetRGBA(0, 0, 0, 0.7)
	dc.DrawRectangle(x-10, y-textH-5, textW+30, textH+15)
	dc.Fill()
	dc.SetRGB255(255, 255, 255)
	dc.DrawString(text, x, y)
}
