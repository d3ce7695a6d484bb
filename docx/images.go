package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"hdx/utils/images"
)

// ErrUnsupportedImage is returned for data which cannot be placed into
// document.
var ErrUnsupportedImage = errors.New("unsupported image format")

// pixel is 1/96 inch
const pointsPerPixel = 0.75

// Image is prepared picture data ready to be embedded.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int // pixels
	Height      int // pixels
}

// ImageOptions control image preparation.
type ImageOptions struct {
	MaxWidth           int     // pixels, 0 - no limit
	ConvertUnsupported bool    // re-encode formats Word cannot show (webp) to PNG
	SVGScale           float64 // stroke width multiplier for SVG rasterizing
}

// native formats Word displays as is
var nativeFormats = map[string]imaging.Format{
	"image/png":  imaging.PNG,
	"image/jpeg": imaging.JPEG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

// PrepareImage detects image format and converts it when necessary. SVG is
// rasterized to PNG, images wider than MaxWidth are downscaled.
func PrepareImage(data []byte, opts ImageOptions) (*Image, error) {
	if isSVG(data) {
		img, err := images.RasterizeSVG(images.ScaleStrokeWidth(data, opts.SVGScale), 0, 0)
		if err != nil {
			return nil, fmt.Errorf("unable to rasterize svg: %w", err)
		}
		if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
			img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
		}
		return encodeImage(img, imaging.PNG)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, ErrUnsupportedImage
	}
	format, native := nativeFormats[kind.MIME.Value]
	if !native {
		if kind.MIME.Value != "image/webp" || !opts.ConvertUnsupported {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
		}
		format = imaging.PNG
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	if native && (opts.MaxWidth <= 0 || cfg.Width <= opts.MaxWidth) {
		return &Image{
			Data:        data,
			Ext:         kind.Extension,
			ContentType: kind.MIME.Value,
			Width:       cfg.Width,
			Height:      cfg.Height,
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}
	return encodeImage(img, format)
}

func encodeImage(img image.Image, format imaging.Format) (*Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("unable to encode image: %w", err)
	}
	ext, ct := "png", "image/png"
	switch format {
	case imaging.JPEG:
		ext, ct = "jpg", "image/jpeg"
	case imaging.GIF:
		ext, ct = "gif", "image/gif"
	case imaging.BMP:
		ext, ct = "bmp", "image/bmp"
	case imaging.TIFF:
		ext, ct = "tif", "image/tiff"
	}
	return &Image{
		Data:        buf.Bytes(),
		Ext:         ext,
		ContentType: ct,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}

func isSVG(data []byte) bool {
	head := data[:min(len(data), 1024)]
	head = bytes.TrimSpace(head)
	if !bytes.HasPrefix(head, []byte("<")) {
		return false
	}
	return bytes.Contains(head, []byte("<svg"))
}

// Picture is inline image placed into run.
type Picture struct {
	Width  float64 // points
	Height float64 // points
	Name   string

	image  *Image
	id     int
	relID  string
	target string
}

// Image returns picture data.
func (p *Picture) Image() *Image {
	return p.image
}

// AddPicture places image into the run. Sizes are in points, zero size is
// taken from image keeping aspect ratio. Picture never exceeds printable
// width of the page.
func (r *Run) AddPicture(img *Image, width, height float64) *Picture {
	natW := float64(img.Width) * pointsPerPixel
	natH := float64(img.Height) * pointsPerPixel
	switch {
	case width <= 0 && height <= 0:
		width, height = natW, natH
	case width <= 0 && natH > 0:
		width = height * natW / natH
	case height <= 0 && natW > 0:
		height = width * natH / natW
	}
	if limit := r.doc.PrintableWidth(); width > limit {
		height = height * limit / width
		width = limit
	}

	d := r.doc
	id := len(d.pictures) + 1
	pic := &Picture{
		Width:  width,
		Height: height,
		Name:   "Picture " + strconv.Itoa(id),
		image:  img,
		id:     id,
		target: "media/image" + strconv.Itoa(id) + "." + img.Ext,
	}
	pic.relID = d.relate(relImage, pic.target, false)
	d.pictures = append(d.pictures, pic)
	r.picture = pic
	return pic
}
