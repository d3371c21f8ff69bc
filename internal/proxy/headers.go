package proxy

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// copyRPCHeaders copies inbound headers onto the upstream request for the
// JSON-RPC path. Content-Length is dropped: the body may have been rewritten
// and the transport recomputes it from the actual bytes.
func copyRPCHeaders(dst, src http.Header) {
	for name, values := range src {
		if strings.EqualFold(name, "Content-Length") {
			continue
		}
		copyHeader(dst, name, values)
	}
}

// copyPassthroughHeaders copies headers unfiltered, for the GET/fallback path
// and for relaying upstream responses.
func copyPassthroughHeaders(dst, src http.Header) {
	for name, values := range src {
		copyHeader(dst, name, values)
	}
}

// reframeResponseHeaders relays upstream response headers to the caller. When
// enhancement changed the body length, the upstream Content-Length is dropped
// and replaced with the enhanced body's exact byte length.
func reframeResponseHeaders(dst, src http.Header, bodyLen int, lengthChanged bool) {
	for name, values := range src {
		if lengthChanged && strings.EqualFold(name, "Content-Length") {
			continue
		}
		copyHeader(dst, name, values)
	}
	if lengthChanged {
		dst.Set("Content-Length", strconv.Itoa(bodyLen))
	}
}

// copyHeader adds one header field, skipping names or values that cannot be
// represented on the wire. A bad header never fails the whole exchange.
func copyHeader(dst http.Header, name string, values []string) {
	if !httpguts.ValidHeaderFieldName(name) {
		return
	}
	for _, v := range values {
		if !httpguts.ValidHeaderFieldValue(v) {
			continue
		}
		dst.Add(name, v)
	}
}
