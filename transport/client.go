package transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ledgrid/internal/observability/metrics"
)

const defaultTimeout = 5 * time.Second

// Client is the fire-and-forget outbound broadcast helper every proposal
// transition uses to reach peers. Sends are best-effort: the protocol
// tolerates drops because every transition is retried on the node's next
// tick.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Registry
	logger  *slog.Logger
	origin  string
}

// NewClient builds a Client that identifies itself as origin on every
// outbound call and rate-limits outbound requests to burst/rps.
func NewClient(origin string, rps float64, burst int, reg *metrics.Registry, logger *slog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: reg,
		logger:  logger,
		origin:  origin,
	}
}

// Send performs a single blocking outbound call to peerAddr+path carrying
// payload, returning the peer's response body. Callers that want
// fire-and-forget semantics should invoke this from a goroutine (see
// Broadcast).
func (c *Client) Send(ctx context.Context, peerAddr, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("transport: rate limit wait: %w", err)
	}

	url := "http://" + peerAddr + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		return nil, fmt.Errorf("transport: build request to %s: %w", url, err)
	}
	SetHeaders(req, c.origin, payload)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: call %s: %w", url, err)
	}
	defer resp.Body.Close()

	body := make([]byte, 0, 512)
	buf := make([]byte, 512)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	return body, nil
}

// Broadcast fires path to every peer in peers without waiting for logical
// completion; failures are logged and counted, never returned.
func (c *Client) Broadcast(ctx context.Context, peers []string, path string, payload []byte) {
	for _, peer := range peers {
		go func(peer string) {
			if _, err := c.Send(ctx, peer, path, payload); err != nil {
				if c.metrics != nil {
					c.metrics.BroadcastErrors.WithLabelValues(path).Inc()
				}
				if c.logger != nil {
					c.logger.Warn("broadcast failed", "endpoint", path, "peer", peer, "error", err.Error())
				}
			}
		}(peer)
	}
}
