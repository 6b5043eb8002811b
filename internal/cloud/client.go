package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/store"
)

// Header names on every replayed request. The idempotency key is the
// command's request ID; the replay marker lets the cloud distinguish
// gateway replays from direct client traffic.
const (
	headerIdempotencyKey = "Idempotency-Key"
	headerEdgeReplay     = "X-Edge-Replay"
	headerVenueID        = "X-Venue-ID"
	headerDeviceID       = "X-Device-ID"
)

const healthPath = "/api/health"

// Client is the gateway's cloud API client: reachability probe plus
// command replay.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL        string
	venueID        string
	httpClient     *http.Client
	probeTimeout   time.Duration
	requestTimeout time.Duration
}

// New creates a cloud client from configuration. No network I/O happens
// until CheckReachable or Replay is called.
func New(cfg config.CloudConfig, venueID string) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		venueID:        venueID,
		httpClient:     &http.Client{},
		probeTimeout:   cfg.GetProbeTimeout(),
		requestTimeout: cfg.GetRequestTimeout(),
	}
}

// CheckReachable probes the cloud health endpoint with a short timeout.
// Any transport error, timeout, or non-200 response counts as unreachable.
func (c *Client) CheckReachable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Replay sends one queued command to the cloud via its kind's route.
//
// The request carries the command's request ID as an idempotency key, the
// replay marker, the venue ID, and the originating device ID when known.
// A timeout is treated like any other failure; the caller charges it to
// the command's retry budget. Unknown kinds and payloads missing a path
// field fail permanently (see IsPermanent).
func (c *Client) Replay(ctx context.Context, cmd *store.QueuedCommand) error {
	kind, err := ParseCommandKind(cmd.Type)
	if err != nil {
		return err
	}
	spec, err := route(kind)
	if err != nil {
		return err
	}
	path, err := spec.path(cmd.Payload)
	if err != nil {
		return err
	}

	var body io.Reader
	if !spec.emptyBody && len(cmd.Payload) > 0 {
		body = bytes.NewReader(cmd.Payload)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, spec.method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building replay request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerIdempotencyKey, cmd.RequestID)
	req.Header.Set(headerEdgeReplay, "true")
	req.Header.Set(headerVenueID, c.venueID)
	if cmd.DeviceID != nil {
		req.Header.Set(headerDeviceID, *cmd.DeviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replaying %s command: %w", cmd.Type, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("replaying %s command: cloud returned %d", cmd.Type, resp.StatusCode)
	}
	return nil
}
