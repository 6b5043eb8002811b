// Package discovery provides optional zero-configuration LAN discovery
// for the edge gateway using mDNS (via grandcat/zeroconf).
//
// It does two independent things:
//
//  1. Advertises the gateway itself under a configurable service type
//     (default "_edge-gateway._tcp") so devices on the venue LAN can
//     find the gateway's address and venue ID without static config.
//
//  2. Periodically browses for in-venue devices advertising the device
//     service type (default "_edge-device._tcp") and upserts responders
//     into the device registry, so the venue dashboard shows screens
//     and terminals before they ever open a WebSocket.
//
// Discovery is strictly best-effort. Registration or browse failures
// are logged and retried on the next tick; the queue and hub never
// depend on it, and devices pre-configured with the gateway's address
// connect directly.
//
// Thread Safety: Start and Stop must be called from a single goroutine
// (the process lifecycle). Browse passes run on an internal goroutine.
package discovery
