package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"staffplan-backend/internal/bus"
)

// HeaderCache reports whether a GET was answered from the response cache.
const HeaderCache = "X-Cache"

type snapshot struct {
	contentType string
	body        []byte
}

type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// ResponseCache keeps 200 responses to GET requests until they expire or a
// mutation invalidates them.
type ResponseCache struct {
	entries *cache.Cache
	ttl     time.Duration
}

// NewResponseCache returns a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{entries: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Middleware serves cached GETs and records fresh 200s. Every other method
// empties the cache once handled: a write to one event touches several read
// endpoints.
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			rc.entries.Flush()
			return
		}

		key := cacheKey(c.Request)
		if v, ok := rc.entries.Get(key); ok {
			hit := v.(snapshot)
			c.Header(HeaderCache, "HIT")
			c.Data(http.StatusOK, hit.contentType, hit.body)
			c.Abort()
			return
		}

		c.Header(HeaderCache, "MISS")
		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if rec.Status() == http.StatusOK {
			rc.entries.Set(key, snapshot{
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			}, rc.ttl)
		}
	}
}

// Invalidate drops every entry whose path mentions eventID, or everything
// when eventID is empty.
func (rc *ResponseCache) Invalidate(eventID string) {
	if eventID == "" {
		rc.entries.Flush()
		return
	}
	for key := range rc.entries.Items() {
		if strings.Contains(key, eventID) {
			rc.entries.Delete(key)
		}
	}
}

// Len reports the number of live entries.
func (rc *ResponseCache) Len() int {
	return rc.entries.ItemCount()
}

// OnNotify returns a bus handler that invalidates the notified event.
func (rc *ResponseCache) OnNotify() bus.Handler {
	return func(n bus.Notification) {
		rc.Invalidate(n.EventID)
	}
}

// cacheKey orders query parameters so equivalent URLs share an entry.
func cacheKey(r *http.Request) string {
	q := r.URL.Query().Encode()
	if q == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q
}
