// Package cropper extracts canonical rectangles out of source images.
package cropper

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/darkroomhq/darkroom/pkg/boundingbox"
)

// ErrOutOfBounds indicates a rectangle that does not fit inside the
// source image. Rectangles produced by boundingbox.Normalize for the
// same image always fit; hitting this error means a caller bypassed
// the normalizer.
var ErrOutOfBounds = errors.New("crop rectangle out of image bounds")

// Crop extracts the pixel region [Left,Right) x [Top,Bottom) into a new
// independently-owned buffer. The source image is never mutated and the
// result does not alias its pixels.
func Crop(img image.Image, rect boundingbox.Rect) (image.Image, error) {
	if err := checkBounds(img, rect); err != nil {
		return nil, err
	}

	// imaging.Crop copies the region into a fresh NRGBA buffer.
	return imaging.Crop(img, rect.ImageRect()), nil
}

func checkBounds(img image.Image, rect boundingbox.Rect) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if rect.Left < 0 || rect.Top < 0 || rect.Right > w || rect.Bottom > h ||
		rect.Left >= rect.Right || rect.Top >= rect.Bottom {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) in %dx%d image",
			ErrOutOfBounds, rect.Left, rect.Top, rect.Right, rect.Bottom, w, h)
	}
	return nil
}
