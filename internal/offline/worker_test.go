package offline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Worker", func() {
	var (
		originMu    sync.Mutex
		originPaths []string
		originBody  map[string]string

		origin *httptest.Server
		store  *Store
		worker *Worker
	)

	originHits := func() []string {
		originMu.Lock()
		defer originMu.Unlock()
		return append([]string(nil), originPaths...)
	}

	BeforeEach(func() {
		originPaths = nil
		originBody = map[string]string{
			"/":              "shell",
			"/static/app.js": "app-v1",
			"/list":          "fresh-list",
			"/save_text":     "saved",
			"/other.txt":     "uncached",
		}
		origin = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			originMu.Lock()
			originPaths = append(originPaths, r.URL.Path)
			body, ok := originBody[r.URL.Path]
			originMu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(body))
		}))
		DeferCleanup(origin.Close)

		var err error
		store, err = NewStore(filepath.Join(GinkgoT().TempDir(), "cache.db"), origin.URL)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		// "/list" is deliberately installed to prove bypass wins over
		// a same-named cached asset.
		m := Manifest{Generation: "v1", Assets: []string{"/", "/static/app.js", "/list"}}
		Expect(store.Install(context.Background(), m)).To(Succeed())

		originMu.Lock()
		originPaths = nil
		originMu.Unlock()

		originURL, err := url.Parse(origin.URL)
		Expect(err).NotTo(HaveOccurred())
		worker = NewWorker(store, "v1", originURL)
	})

	get := func(path string) (*http.Response, string) {
		rec := httptest.NewRecorder()
		worker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		resp := rec.Result()
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return resp, string(body)
	}

	When("a reserved API path is requested", func() {
		It("should go to the network even when the cache holds it", func() {
			originMu.Lock()
			originBody["/list"] = "fresher-list"
			originMu.Unlock()

			_, body := get("/list")

			Expect(body).To(Equal("fresher-list"))
			Expect(originHits()).To(Equal([]string{"/list"}))
		})

		It("should proxy every reserved prefix unconditionally", func() {
			for _, path := range []string{"/save_text", "/scan/42", "/list", "/download"} {
				get(path)
			}

			Expect(originHits()).To(Equal([]string{"/save_text", "/scan/42", "/list", "/download"}))
		})
	})

	When("a cached asset is requested", func() {
		It("should serve from the cache without touching the network", func() {
			_, body := get("/static/app.js")

			Expect(body).To(Equal("app-v1"))
			Expect(originHits()).To(BeEmpty())
		})

		It("should keep serving it while the origin is down", func() {
			origin.Close()

			resp, body := get("/")

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("shell"))
		})
	})

	When("an uncached asset is requested", func() {
		It("should fall through to the network", func() {
			resp, body := get("/other.txt")

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(Equal("uncached"))
			Expect(originHits()).To(Equal([]string{"/other.txt"}))
		})

		It("should not populate the cache from the network response", func() {
			get("/other.txt")

			_, ok := store.Get("v1", "/other.txt")
			Expect(ok).To(BeFalse())
		})
	})
})
