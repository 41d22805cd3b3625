// Package web holds the few static files served next to the API.
package web

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var indexHTML []byte

//go:embed robots.txt
var robotsTxt []byte

// indexCSP relaxes the API-wide policy just enough for the page's inline
// stylesheet.
const indexCSP = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'"

// IndexHandler serves the landing page at the web root.
func IndexHandler() http.Handler {
	h := staticHandler(indexHTML, "text/html; charset=utf-8", "public, max-age=3600, must-revalidate")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", indexCSP)
		h.ServeHTTP(w, r)
	})
}

func RobotsTxtHandler() http.Handler {
	return staticHandler(robotsTxt, "text/plain; charset=utf-8", "public, max-age=86400")
}

func staticHandler(body []byte, contentType, cacheControl string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", cacheControl)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	})
}
