// Package mqtt is the gateway's optional local event bus.
//
// When a venue runs a broker, the gateway mirrors queue and sync lifecycle
// events onto venue-scoped topics so in-venue integrations (dashboards,
// printers, signage) can react without polling the HTTP API. The bus is
// strictly optional: the queue and hub run identically without it.
package mqtt
