// Package api provides the HTTP REST API and WebSocket device hub for the
// Venue Edge Gateway.
//
// In-venue devices (POS terminals, KDS screens) connect over WebSocket to
// register, heartbeat, enqueue commands, and watch sync status. A small REST
// surface exposes health, queue stats, the device registry, the local cache,
// pairing codes, and a manual sync trigger.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
