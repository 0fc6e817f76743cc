package render

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"time"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/observability"
)

// Output formats accepted by Encode.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// DefaultJPEGQuality is used when Encode is called with quality <= 0.
const DefaultJPEGQuality = 85

// NormalizeFormat lowercases format and maps "jpg" to "jpeg".
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		return FormatJPEG
	}
	return f
}

// Encode writes img as PNG or JPEG. Quality only applies to JPEG.
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	start := time.Now()
	format = NormalizeFormat(format)

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	default:
		return nil, vpoerrors.New(vpoerrors.ErrCodeInvalidFormat, "unsupported output format %q (want png or jpeg)", format)
	}

	observability.Render().OnEncode(context.Background(), format, buf.Len(), time.Since(start), err)
	if err != nil {
		return nil, vpoerrors.Wrap(vpoerrors.ErrCodeInternal, err, "encode %s", format)
	}
	return buf.Bytes(), nil
}
