package submit

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	Describe("UploadScan", func() {
		var (
			server       *httptest.Server
			gotSource    string
			gotFilename  string
			gotType      string
			gotFile      []byte
			responseBody string
		)

		BeforeEach(func() {
			responseBody = `{"found":1,"items":[{"text":"decoded","scan_id":"9"}]}`
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSource = r.URL.Query().Get("source")
				file, header, err := r.FormFile("file")
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				defer file.Close()
				gotFilename = header.Filename
				gotType = header.Header.Get("Content-Type")
				gotFile, _ = io.ReadAll(file)
				w.Write([]byte(responseBody))
			}))
			DeferCleanup(server.Close)
		})

		It("should post one multipart file with the source tag", func() {
			client := NewClient(server.URL)

			result, err := client.UploadScan(context.Background(), "nota.png", []byte("png-bytes"), "image/png", "upload")

			Expect(err).NotTo(HaveOccurred())
			Expect(gotSource).To(Equal("upload"))
			Expect(gotFilename).To(Equal("nota.png"))
			Expect(gotType).To(Equal("image/png"))
			Expect(gotFile).To(Equal([]byte("png-bytes")))
			Expect(result.Found).To(Equal(1))
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Text).To(Equal("decoded"))
			Expect(result.Items[0].ScanID).To(Equal("9"))
		})
	})

	Describe("ListScans", func() {
		It("should pass limit and query through", func() {
			var gotQuery map[string][]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query()
				w.Write([]byte(`{"count":1,"items":[{"id":7,"source":"pwa","data_raw":"abc"}]}`))
			}))
			DeferCleanup(server.Close)

			client := NewClient(server.URL)
			list, err := client.ListScans(context.Background(), 25, "abc")

			Expect(err).NotTo(HaveOccurred())
			Expect(gotQuery).To(HaveKeyWithValue("limit", []string{"25"}))
			Expect(gotQuery).To(HaveKeyWithValue("q", []string{"abc"}))
			Expect(list.Count).To(Equal(1))
			Expect(list.Items[0].DataRaw).To(Equal("abc"))
		})
	})

	Describe("ExportCSV", func() {
		It("should stream the export body", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/csv")
				w.Write([]byte("id;timestamp;source;data_raw\n1;;pwa;abc\n"))
			}))
			DeferCleanup(server.Close)

			client := NewClient(server.URL)
			var buf bytes.Buffer

			Expect(client.ExportCSV(context.Background(), &buf)).To(Succeed())
			Expect(buf.String()).To(HavePrefix("id;timestamp;source;data_raw"))
		})
	})
})
