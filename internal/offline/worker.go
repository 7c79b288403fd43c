package offline

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
)

// BypassPrefixes are the dynamic API paths the worker never
// intercepts: these always go straight to the network, uncached.
var BypassPrefixes = []string{"/save_text", "/scan", "/list", "/download"}

// AssetCache is the read side of the cache store the worker serves
// from. The worker never writes to it; population happens only at
// install time.
type AssetCache interface {
	Get(generation, assetPath string) (*Asset, bool)
}

// Worker intercepts requests in front of the origin. Cached assets of
// the current generation are served locally; everything else falls
// through to the network.
type Worker struct {
	cache      AssetCache
	generation string
	proxy      http.Handler
}

// NewWorker creates a worker serving the given generation, proxying
// misses and bypassed paths to origin.
func NewWorker(cache AssetCache, generation string, origin *url.URL) *Worker {
	return &Worker{
		cache:      cache,
		generation: generation,
		proxy:      httputil.NewSingleHostReverseProxy(origin),
	}
}

func (wk *Worker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Dynamic data is always network-fresh, even when a same-named
	// asset sits in the cache.
	if bypassed(r.URL.Path) {
		wk.proxy.ServeHTTP(w, r)
		return
	}

	if asset, ok := wk.cache.Get(wk.generation, r.URL.Path); ok {
		if asset.ContentType != "" {
			w.Header().Set("Content-Type", asset.ContentType)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(asset.Body)))
		w.Write(asset.Body)
		return
	}

	// Miss: fall through to the network without populating the cache.
	wk.proxy.ServeHTTP(w, r)
}

func bypassed(path string) bool {
	for _, prefix := range BypassPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
