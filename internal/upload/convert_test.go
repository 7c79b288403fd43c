package upload

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encodeImage(encode func(*bytes.Buffer) error) []byte {
	var buf bytes.Buffer
	Expect(encode(&buf)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("normalizeImage", func() {
	When("the input is already PNG", func() {
		It("should pass through untouched", func() {
			data := encodeImage(func(buf *bytes.Buffer) error {
				return png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))
			})

			out, contentType, err := normalizeImage(data, "image/png")

			Expect(err).NotTo(HaveOccurred())
			Expect(contentType).To(Equal("image/png"))
			Expect(out).To(Equal(data))
		})
	})

	When("the input is JPEG", func() {
		It("should convert to PNG", func() {
			data := encodeImage(func(buf *bytes.Buffer) error {
				return jpeg.Encode(buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil)
			})

			out, contentType, err := normalizeImage(data, "image/jpeg")

			Expect(err).NotTo(HaveOccurred())
			Expect(contentType).To(Equal("image/png"))

			decoded, format, err := image.Decode(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(decoded.Bounds().Dx()).To(Equal(4))
		})
	})

	When("the input is not an image", func() {
		It("should fail", func() {
			_, _, err := normalizeImage([]byte("not an image"), "text/plain")

			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("sniffContentType", func() {
	It("should trust known extensions", func() {
		Expect(sniffContentType("a.jpg", nil)).To(Equal("image/jpeg"))
		Expect(sniffContentType("a.PNG", nil)).To(Equal("image/png"))
		Expect(sniffContentType("a.pdf", nil)).To(Equal("application/pdf"))
		Expect(sniffContentType("a.heic", nil)).To(Equal("image/heic"))
	})

	It("should sniff unknown extensions from content", func() {
		data := encodeImage(func(buf *bytes.Buffer) error {
			return png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))
		})

		Expect(sniffContentType("a.bin", data)).To(Equal("image/png"))
	})
})

var _ = Describe("isHEIC", func() {
	It("should recognize the ftyp heic brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		data = append(data, make([]byte, 8)...)

		Expect(isHEIC(data)).To(BeTrue())
	})

	It("should reject other containers", func() {
		Expect(isHEIC([]byte("\x89PNG\r\n\x1a\n plus padding"))).To(BeFalse())
		Expect(isHEIC(nil)).To(BeFalse())
	})
})
