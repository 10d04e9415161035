package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

// snapshot is a complete response kept in the cache.
type snapshot struct {
	code   int
	header http.Header
	body   []byte
}

func (s snapshot) replay(c *gin.Context) {
	for k, v := range s.header {
		c.Writer.Header()[k] = v
	}
	c.Writer.Header().Set(CacheHeader, "HIT")
	c.Writer.WriteHeader(s.code)
	_, _ = c.Writer.Write(s.body)
}

// teeWriter copies the body into buf while writing it to the client.
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

// cacheKey is the route path plus the canonically ordered query string.
func cacheKey(r *http.Request) string {
	q := r.URL.Query().Encode()
	if q == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q
}

// Cache serves repeated GET requests from store for ttl.
// Only 2xx responses are stored.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c.Request)
		if v, ok := store.Get(key); ok {
			v.(snapshot).replay(c)
			c.Abort()
			return
		}

		c.Writer.Header().Set(CacheHeader, "MISS")
		tw := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tw
		c.Next()

		code := tw.Status()
		if code < 200 || code >= 300 {
			return
		}
		header := tw.Header().Clone()
		header.Del(CacheHeader)
		store.Set(key, snapshot{code: code, header: header, body: bytes.Clone(tw.buf.Bytes())}, ttl)
	}
}
