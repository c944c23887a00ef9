// Package landmarktest provides encoded frames for tests.
package landmarktest

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Frame returns a solid w×h RGBA image.
func Frame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 160, B: 120, A: 255})
		}
	}
	return img
}

// PNGDataURI encodes a w×h frame as a PNG data URI.
func PNGDataURI(w, h int) string {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Frame(w, h)); err != nil {
		panic(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// JPEGDataURI encodes a w×h frame as a JPEG data URI, as browsers do with
// canvas.toDataURL("image/jpeg").
func JPEGDataURI(w, h int) string {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Frame(w, h), &jpeg.Options{Quality: 80}); err != nil {
		panic(err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
