package submit

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TableRenderer", func() {
	var (
		buf      *bytes.Buffer
		renderer *TableRenderer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		renderer = NewTableRenderer(buf)
	})

	Describe("ShowScanned", func() {
		It("should display the last scanned text", func() {
			renderer.ShowScanned("abc")

			Expect(buf.String()).To(ContainSubstring("Last scanned: abc"))
		})

		It("should render a placeholder when the text is absent", func() {
			renderer.ShowScanned("")

			Expect(buf.String()).To(ContainSubstring("Last scanned: —"))
		})
	})

	Describe("ShowDetail", func() {
		It("should keep the backend's item order", func() {
			qty := 2.0
			renderer.ShowDetail(&ScanDetail{
				Items: []LineItem{
					{Name: "Zeta", Qty: &qty},
					{Name: "Alpha"},
				},
			})

			out := buf.String()
			Expect(out).To(MatchRegexp(`(?s)Zeta.*Alpha`))
		})

		It("should render a placeholder for every absent field", func() {
			renderer.ShowDetail(&ScanDetail{
				Items: []LineItem{{}},
			})

			out := buf.String()
			Expect(out).To(ContainSubstring("Store:"))
			Expect(out).To(ContainSubstring("—"))
			// Header plus meta rows plus one item row, all placeholders.
			Expect(out).NotTo(ContainSubstring("0\t"))
		})

		It("should distinguish a real zero from an absent value", func() {
			zero := 0.0
			renderer.ShowDetail(&ScanDetail{
				Items: []LineItem{{Name: "Bag", Qty: &zero}},
			})

			Expect(buf.String()).To(ContainSubstring("Bag"))
			Expect(buf.String()).To(MatchRegexp(`Bag\s+0\s`))
		})
	})
})
