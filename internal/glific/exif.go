package glific

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureTime extracts the moment the photo was taken from its EXIF block.
// Phones stamp DateTimeOriginal when the camera fires, which is a better
// reading timestamp than the upload time when networks are slow. Returns
// false when the image carries no usable EXIF data.
func CaptureTime(data []byte) (time.Time, bool) {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}

	taken, err := meta.DateTime()
	if err != nil || taken.IsZero() {
		return time.Time{}, false
	}

	return taken, true
}
