package imaging

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// canvasFill is the padding color used when aspect-preserving resize leaves
// a border around the scaled image.
var canvasFill = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Resize scales img to exactly targetW x targetH.
//
// With keepAspect, the image is downscaled to fit inside the target box and
// centered on a white canvas of the exact target size. Without it, the image
// is resampled directly to the target dimensions. Both paths use CatmullRom
// resampling.
func Resize(img image.Image, targetW, targetH int, keepAspect bool) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW == targetW && srcH == targetH {
		return img
	}

	if !keepAspect {
		dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		return dst
	}

	// Scale to fit within the target box.
	scale := minFloat(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
	if scale > 1 {
		scale = 1 // never upscale when preserving aspect
	}
	fitW := int(float64(srcW) * scale)
	fitH := int(float64(srcH) * scale)
	if fitW < 1 {
		fitW = 1
	}
	if fitH < 1 {
		fitH = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, fitW, fitH))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)

	// Center on a canvas of the exact requested size.
	canvas := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(canvasFill), image.Point{}, draw.Src)

	offsetX := (targetW - fitW) / 2
	offsetY := (targetH - fitH) / 2
	target := image.Rect(offsetX, offsetY, offsetX+fitW, offsetY+fitH)
	draw.Draw(canvas, target, scaled, image.Point{}, draw.Over)

	return canvas
}

// ToRGBA converts any image to RGBA, the canonical color mode submitted to
// the model backend. Returns the input unchanged when already RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
