package upload

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// sniffContentType determines the content type of an upload from its
// file extension, falling back to content sniffing.
func sniffContentType(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic", ".heif":
		return "image/heic"
	}
	return http.DetectContentType(data)
}

// normalizeImage converts PDFs and non-PNG images to PNG so the
// backend only ever sees one raster format. PNG input passes through
// untouched. Returns the final data and its content type.
func normalizeImage(data []byte, contentType string) ([]byte, string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case contentType == "application/pdf":
		pngData, err := pdfToPNG(data)
		if err != nil {
			return nil, "", fmt.Errorf("converting PDF: %w", err)
		}
		return pngData, "image/png", nil
	case contentType == "image/png" && !isHEIC(data):
		return data, "image/png", nil
	default:
		pngData, err := imageToPNG(data, contentType)
		if err != nil {
			return nil, "", fmt.Errorf("converting image: %w", err)
		}
		return pngData, "image/png", nil
	}
}

// pdfToPNG renders the first page of a PDF. QR payloads on printed
// receipts are single-page.
func pdfToPNG(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

func imageToPNG(data []byte, contentType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEIC(data) || strings.Contains(contentType, "hei") {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC recognizes HEIC/HEIF containers by the ftyp box brand, since
// phone uploads often arrive with a generic or wrong content type.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
