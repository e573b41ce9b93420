package edge

import (
	"fmt"
	"net/http"
	"strings"
)

// maxCookieChunks bounds the chunk probe so a hostile request cannot
// drive an unbounded scan.
const maxCookieChunks = 20

// CookieSource abstracts where cookies come from so the decoder works
// against an *http.Request, a test map, or any other carrier.
type CookieSource interface {
	// Cookie returns the value of the named cookie and whether it was
	// present.
	Cookie(name string) (string, bool)
}

// RequestCookies adapts an *http.Request to CookieSource.
type RequestCookies struct {
	req *http.Request
}

// NewRequestCookies wraps a request.
func NewRequestCookies(req *http.Request) RequestCookies {
	return RequestCookies{req: req}
}

func (r RequestCookies) Cookie(name string) (string, bool) {
	c, err := r.req.Cookie(name)
	if err != nil || c == nil {
		return "", false
	}
	return c.Value, true
}

// MapCookies is a CookieSource over a plain map, used in tests and for
// pre-parsed cookie headers.
type MapCookies map[string]string

func (m MapCookies) Cookie(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// ReadChunkedCookie reassembles a possibly chunked cookie value. The
// exact name wins when present; otherwise sequentially numbered suffixes
// (name.0, name.1, ...) are concatenated in order until the first gap.
// Returns the empty string when no cookie was found at all.
func ReadChunkedCookie(src CookieSource, name string) string {
	if v, ok := src.Cookie(name); ok {
		return v
	}

	var b strings.Builder
	for i := 0; i < maxCookieChunks; i++ {
		chunk, ok := src.Cookie(fmt.Sprintf("%s.%d", name, i))
		if !ok {
			break
		}
		b.WriteString(chunk)
	}
	return b.String()
}
