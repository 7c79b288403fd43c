package scan

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"
	xdraw "golang.org/x/image/draw"
)

// maxFrameWidth caps the frame size fed to the decoder. Camera frames
// can be 4K; decoding is pixel-bound and QR modules survive downscaling.
const maxFrameWidth = 1024

// ZXingDetector decodes QR codes with the gozxing port of ZXing.
type ZXingDetector struct {
	reader      gozxing.Reader
	multiReader multi.MultipleBarcodeReader
}

// NewZXingDetector creates a detector bound to the QR symbology.
func NewZXingDetector() *ZXingDetector {
	return &ZXingDetector{
		reader:      qrcode.NewQRCodeReader(),
		multiReader: multiqr.NewQRCodeMultiReader(),
	}
}

// Detect decodes all QR codes in the frame. It tries a multi-code pass
// first and falls back to a single-code pass, dropping empty texts and
// collapsing duplicates.
func (d *ZXingDetector) Detect(ctx context.Context, frame image.Image) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(downscale(frame))
	if err != nil {
		return nil, fmt.Errorf("binarizing frame: %w", err)
	}

	if results, err := d.multiReader.DecodeMultiple(bmp, nil); err == nil {
		texts := dedupeTexts(results)
		if len(texts) > 0 {
			return texts, nil
		}
	}

	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		// NotFound is the normal "no code in this frame" outcome.
		if _, ok := err.(gozxing.NotFoundException); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	if text := strings.TrimSpace(result.GetText()); text != "" {
		return []string{result.GetText()}, nil
	}
	return nil, nil
}

func dedupeTexts(results []*gozxing.Result) []string {
	var texts []string
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		text := r.GetText()
		if strings.TrimSpace(text) == "" || seen[text] {
			continue
		}
		seen[text] = true
		texts = append(texts, text)
	}
	return texts
}

func downscale(frame image.Image) image.Image {
	b := frame.Bounds()
	if b.Dx() <= maxFrameWidth {
		return frame
	}
	h := b.Dy() * maxFrameWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxFrameWidth, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, b, xdraw.Src, nil)
	return dst
}
