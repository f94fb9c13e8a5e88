package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

// recordingWriter tees the response body so it can be stored after the handler ran.
type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// cacheKey is the path plus the query in sorted order.
func cacheKey(r *http.Request) string {
	if q := r.URL.Query(); len(q) > 0 {
		return r.URL.Path + "?" + q.Encode()
	}
	return r.URL.Path
}

// Cache stores successful GET responses of public routes in memory. Requests
// from a logged-in session bypass it, so must run after Session.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if s, ok := SessionFrom(c); ok && s.IsLoggedIn {
			c.Header("X-Cache", "BYPASS")
			c.Next()
			return
		}

		key := cacheKey(c.Request)
		if v, found := store.Get(key); found {
			hit := v.(cachedResponse)
			header := c.Writer.Header()
			for k, vals := range hit.headers {
				header[k] = vals
			}
			header.Set("X-Cache", "HIT")
			c.Writer.WriteHeader(hit.status)
			_, _ = c.Writer.Write(hit.body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")
		rw := &recordingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		if status := rw.Status(); status >= http.StatusOK && status < http.StatusMultipleChoices {
			headers := rw.Header().Clone()
			headers.Del("X-Cache")
			store.Set(key, cachedResponse{status: status, headers: headers, body: rw.body.Bytes()}, ttl)
		}
	}
}
