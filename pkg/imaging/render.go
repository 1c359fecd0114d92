package imaging

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type Box struct {
	Label      string
	Confidence float64
	Rect       image.Rectangle
}

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
}

const strokeWidth = 2

// Render draws each box with a "label confidence" caption onto a copy of
// img. The source buffer is left untouched.
func Render(img image.Image, boxes []Box) *image.RGBA {
	canvas := Clone(img)
	offset := img.Bounds().Min

	for _, b := range boxes {
		rect := b.Rect.Sub(offset).Intersect(canvas.Bounds())
		if rect.Empty() {
			continue
		}

		c := colorFor(b.Label)
		drawRect(canvas, rect, c)
		drawCaption(canvas, rect, fmt.Sprintf("%s %.2f", b.Label, b.Confidence), c)
	}

	return canvas
}

func colorFor(label string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return palette[h.Sum32()%uint32(len(palette))]
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+strokeWidth),
		image.Rect(r.Min.X, r.Max.Y-strokeWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+strokeWidth, r.Max.Y),
		image.Rect(r.Max.X-strokeWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

func drawCaption(dst *image.RGBA, r image.Rectangle, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Metrics().Height.Ceil() + 2

	// Caption sits above the box, or inside it when the box touches the top edge.
	top := r.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	label := image.Rect(r.Min.X, top, r.Min.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, label, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(label.Min.X+2, label.Min.Y+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}
