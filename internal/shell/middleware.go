package shell

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheHeader reports whether a response came from the shell cache
const CacheHeader = "X-Shell-Cache"

// Middleware serves GET requests under the given path prefixes from the cache.
// On a miss the rest of the chain acts as the network and a successful
// response is stored for next time.
func (c *Cache) Middleware(prefixes ...string) gin.HandlerFunc {
	return func(gc *gin.Context) {
		req := gc.Request
		if req.Method != http.MethodGet || req.Header.Get(BypassHeader) != "" || !hasPrefix(req.URL.Path, prefixes) {
			gc.Next()
			return
		}

		next := NetworkFunc(func(_ context.Context, _, _ string) (*Response, error) {
			tee := &teeWriter{ResponseWriter: gc.Writer}
			gc.Writer = tee
			gc.Writer.Header().Set(CacheHeader, "miss")
			gc.Next()
			gc.Writer = tee.ResponseWriter
			return &Response{
				Status:      tee.Status(),
				ContentType: tee.Header().Get("Content-Type"),
				Body:        tee.buf.Bytes(),
			}, nil
		})

		resp, hit, err := c.Fetch(req.Context(), req.Method, req.URL.RequestURI(), next)
		if err != nil || !hit {
			return
		}

		gc.Writer.Header().Set(CacheHeader, "hit")
		gc.Data(resp.Status, resp.ContentType, resp.Body)
		gc.Abort()
	}
}

// ExternalHandler serves a whitelisted cross-origin resource named by the
// "url" query parameter through the cache
func (c *Cache) ExternalHandler(network Network) gin.HandlerFunc {
	return func(gc *gin.Context) {
		target := gc.Query("url")
		if target == "" || !c.Whitelisted(target) {
			gc.String(http.StatusForbidden, "resource is not whitelisted")
			return
		}

		resp, hit, err := c.Fetch(gc.Request.Context(), http.MethodGet, target, network)
		if err != nil {
			gc.String(http.StatusBadGateway, "failed to fetch resource")
			return
		}

		if hit {
			gc.Header(CacheHeader, "hit")
		} else {
			gc.Header(CacheHeader, "miss")
		}
		gc.Data(resp.Status, resp.ContentType, resp.Body)
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == path || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// teeWriter copies the body written by downstream handlers
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
