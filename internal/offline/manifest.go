// Package offline implements the asset-cache worker: a versioned,
// eagerly installed cache of the app shell, served by an HTTP
// intermediary that never intercepts dynamic API paths.
package offline

// Manifest declares the static assets one cache generation must hold.
type Manifest struct {
	// Generation labels the cache snapshot. Exactly one generation is
	// current at a time.
	Generation string
	// Assets are origin paths, fetched eagerly at install.
	Assets []string
}

// DefaultManifest returns the app-shell manifest: document root,
// stylesheet, script, web-app manifest and the two icon sizes.
func DefaultManifest(generation string) Manifest {
	return Manifest{
		Generation: generation,
		Assets: []string{
			"/",
			"/static/style.css",
			"/static/app.js",
			"/manifest.webmanifest",
			"/static/icons/icon-192.png",
			"/static/icons/icon-512.png",
		},
	}
}
