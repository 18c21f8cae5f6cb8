package redact

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
)

// ApplyImage renders an image plan: decodes the source, fills each
// planned region with solid black, and re-encodes as PNG. The plan
// is followed exactly; no detection happens here.
func ApplyImage(data []byte, fills []RegionFill) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	for _, fill := range fills {
		rect := image.Rect(fill.Region.X0, fill.Region.Y0, fill.Region.X1, fill.Region.Y1)
		rect = rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}
		draw.Draw(out, rect, &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode redacted image: %w", err)
	}
	return buf.Bytes(), nil
}
