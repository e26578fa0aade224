// Package importer turns uploaded invoice documents into structured
// invoice drafts using a vision model.
package importer

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// maxPages caps how many document pages are sent to the vision model.
const maxPages = 2

// renderPages converts an uploaded document into JPEG page images.
// PDFs are rasterized page by page; JPEG and PNG uploads pass through
// after re-encoding.
func (imp *Importer) renderPages(path string) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("document not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return imp.renderPDF(path)
	case ".jpg", ".jpeg", ".png":
		return imp.readImage(path, ext)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", ext)
	}
}

func (imp *Importer) renderPDF(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	imp.logger.Debug("Rasterizing PDF", zap.Int("total_pages", pageCount))

	var pages [][]byte
	for pageNum := 0; pageNum < pageCount && len(pages) < maxPages; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			imp.logger.Warn("Failed to rasterize page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		data, err := encodeJPEG(img)
		if err != nil {
			imp.logger.Warn("Failed to encode page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		pages = append(pages, data)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF")
	}
	return pages, nil
}

func (imp *Importer) readImage(path, ext string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return [][]byte{data}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
