package transport

import (
	"net/http"

	"ledgrid/internal/codec"
)

// OriginHeader carries the sending node's network address.
const OriginHeader = "Origin"

// PayloadHeader carries the Base64 of the JSON (or raw decimal/empty)
// message payload. The wire protocol reuses User-Agent for this rather
// than a bespoke header.
const PayloadHeader = "User-Agent"

// ReadOrigin extracts the sender's network origin from an inbound request.
func ReadOrigin(r *http.Request) string {
	return r.Header.Get(OriginHeader)
}

// ReadPayload decodes the Base64 payload carried in an inbound request,
// returning nil for an absent or empty header (the "empty payload"
// endpoints).
func ReadPayload(r *http.Request) ([]byte, error) {
	raw := r.Header.Get(PayloadHeader)
	if raw == "" {
		return nil, nil
	}
	decoded, err := codec.Base64Decode(raw)
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}

// SetHeaders attaches the origin and Base64 payload headers to an outbound
// request.
func SetHeaders(req *http.Request, origin string, payload []byte) {
	req.Header.Set(OriginHeader, origin)
	req.Header.Set(PayloadHeader, codec.Base64Encode(string(payload)))
}
