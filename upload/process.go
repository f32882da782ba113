package upload

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/code19m/errx"
	"github.com/disintegration/imaging"

	"github.com/deedvault/fileguard/upload/strategy"
)

// decodableImageTypes lists the sniffed MIME types the imaging library can
// round-trip. Other image formats (webp, svg) skip structural decode and
// processing.
var decodableImageTypes = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

// checkStructure rejects payloads whose container is malformed even though
// the content checks passed: images that do not decode and PDF files
// missing their header or trailer.
func checkStructure(f *strategy.NormalizedFile, sniffedMIME string) error {
	if _, ok := decodableImageTypes[sniffedMIME]; ok {
		if _, err := imaging.Decode(bytes.NewReader(f.Data)); err != nil {
			return errx.New(
				"malformed image: "+err.Error(),
				errx.WithCode(CodeContentInvalid),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"filename": f.OriginalName}),
			)
		}
		return nil
	}

	if sniffedMIME == "application/pdf" {
		if !bytes.HasPrefix(f.Data, []byte("%PDF-")) || !bytes.Contains(tail(f.Data, 2048), []byte("%%EOF")) {
			return errx.New(
				"malformed document: missing header or trailer",
				errx.WithCode(CodeContentInvalid),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"filename": f.OriginalName}),
			)
		}
	}
	return nil
}

func tail(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}

// derivedThumb is an in-memory thumbnail pending persistence.
type derivedThumb struct {
	width int
	name  string
	data  []byte
}

// processed carries the outcome of best-effort image processing.
type processed struct {
	data   []byte
	width  int
	height int
	thumbs []derivedThumb
}

// processImage downscales oversized images and derives thumbnails per the
// channel config. Returns nil when the payload is not a processable image.
// Any failure here is reported to the caller for logging but never fails
// the upload; the original bytes stay usable.
func processImage(cfg ChannelConfig, f *strategy.NormalizedFile, sniffedMIME string) (*processed, error) {
	format, ok := decodableImageTypes[sniffedMIME]
	if !ok {
		return nil, nil
	}
	if cfg.MaxImageWidth <= 0 && !cfg.GenerateThumbnails {
		// Still decode once for dimension metadata.
		cfgImg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
		if err != nil {
			return nil, errx.Wrap(err)
		}
		return &processed{data: f.Data, width: cfgImg.Width, height: cfgImg.Height}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, errx.Wrap(err)
	}

	out := &processed{data: f.Data}

	if cfg.MaxImageWidth > 0 && img.Bounds().Dx() > cfg.MaxImageWidth {
		img = imaging.Resize(img, cfg.MaxImageWidth, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, format); err != nil {
			return nil, errx.Wrap(err)
		}
		out.data = buf.Bytes()
	}

	out.width = img.Bounds().Dx()
	out.height = img.Bounds().Dy()

	if cfg.GenerateThumbnails {
		base := thumbBase(f.OriginalName)
		for _, w := range cfg.ThumbnailWidths {
			if w <= 0 || w >= out.width {
				continue
			}
			thumb := imaging.Resize(img, w, 0, imaging.Lanczos)
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
				return nil, errx.Wrap(err)
			}
			out.thumbs = append(out.thumbs, derivedThumb{
				width: w,
				name:  fmt.Sprintf("%s_thumb%d.jpg", base, w),
				data:  buf.Bytes(),
			})
		}
	}

	return out, nil
}

func thumbBase(originalName string) string {
	if i := strings.LastIndexByte(originalName, '.'); i > 0 {
		return originalName[:i]
	}
	return originalName
}
