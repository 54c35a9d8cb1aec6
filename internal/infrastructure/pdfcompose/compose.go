// Package pdfcompose merges JPEG and PNG scans into a single PDF, one image
// per page at 72 dpi.
package pdfcompose

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
)

// ErrNoImages is returned when ImagesToPDF is called without input
var ErrNoImages = errors.New("at least one image is required")

type pageImage struct {
	width, height int
	colorSpace    string
	filter        string
	data          []byte
}

// ImagesToPDF decodes every image and writes them as consecutive pages.
// Baseline RGB and grayscale JPEGs are embedded as-is; everything else is
// flattened onto white and stored as Flate-compressed RGB.
func ImagesToPDF(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	pages := make([]pageImage, 0, len(images))
	for i, raw := range images {
		page, err := preparePage(raw)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		pages = append(pages, page)
	}

	return writePDF(pages)
}

func preparePage(raw []byte) (pageImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return pageImage{}, fmt.Errorf("unsupported image: %w", err)
	}

	if format == "jpeg" {
		switch cfg.ColorModel {
		case color.YCbCrModel:
			return pageImage{width: cfg.Width, height: cfg.Height, colorSpace: "/DeviceRGB", filter: "/DCTDecode", data: raw}, nil
		case color.GrayModel:
			return pageImage{width: cfg.Width, height: cfg.Height, colorSpace: "/DeviceGray", filter: "/DCTDecode", data: raw}, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return pageImage{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return flatten(img)
}

// flatten composites img onto white and deflates the RGB samples
func flatten(img image.Image) (pageImage, error) {
	bounds := img.Bounds()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)

	row := make([]byte, 0, bounds.Dx()*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row = row[:0]
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			white := 0xffff - a
			row = append(row,
				byte((r+white)>>8),
				byte((g+white)>>8),
				byte((b+white)>>8),
			)
		}
		if _, err := zw.Write(row); err != nil {
			return pageImage{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return pageImage{}, err
	}

	return pageImage{
		width:      bounds.Dx(),
		height:     bounds.Dy(),
		colorSpace: "/DeviceRGB",
		filter:     "/FlateDecode",
		data:       buf.Bytes(),
	}, nil
}

type pdfWriter struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *pdfWriter) object(body func(io.Writer)) int {
	w.offsets = append(w.offsets, w.buf.Len())
	num := len(w.offsets)
	fmt.Fprintf(&w.buf, "%d 0 obj\n", num)
	body(&w.buf)
	w.buf.WriteString("\nendobj\n")
	return num
}

func (w *pdfWriter) stream(dict string, data []byte) int {
	return w.object(func(out io.Writer) {
		fmt.Fprintf(out, "<< %s /Length %d >>\nstream\n", dict, len(data))
		_, _ = out.Write(data)
		_, _ = io.WriteString(out, "\nendstream")
	})
}

// writePDF lays out objects as: 1 catalog, 2 page tree, then per page the
// page, its image and its content stream.
func writePDF(pages []pageImage) ([]byte, error) {
	w := &pdfWriter{}
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+3*i)
	}

	w.object(func(out io.Writer) {
		_, _ = io.WriteString(out, "<< /Type /Catalog /Pages 2 0 R >>")
	})
	w.object(func(out io.Writer) {
		fmt.Fprintf(out, "<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))
	})

	for i, page := range pages {
		imageRef := 4 + 3*i
		contentRef := 5 + 3*i

		w.object(func(out io.Writer) {
			fmt.Fprintf(out,
				"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /XObject << /Im%d %d 0 R >> >> /Contents %d 0 R >>",
				page.width, page.height, i, imageRef, contentRef)
		})
		w.stream(fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace %s /BitsPerComponent 8 /Filter %s",
			page.width, page.height, page.colorSpace, page.filter), page.data)
		w.stream("", []byte(fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im%d Do Q", page.width, page.height, i)))
	}

	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n0000000000 65535 f \n", len(w.offsets)+1)
	for _, off := range w.offsets {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(w.offsets)+1, xref)

	return w.buf.Bytes(), nil
}
