package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/infrastructure/logging"
	"github.com/platefront/edge-gateway/internal/store"
)

const (
	// mdnsDomain is the multicast DNS domain; "local." on every venue LAN.
	mdnsDomain = "local."

	// browseTimeout bounds one browse pass. Responders answer within a
	// couple of seconds on a healthy LAN.
	browseTimeout = 4 * time.Second

	defaultBrowseInterval = 60 * time.Second
)

// DeviceRegistry is the slice of the store that discovery writes to.
type DeviceRegistry interface {
	UpsertDevice(ctx context.Context, d *store.Device) error
}

// Deps carries everything the discovery service needs.
type Deps struct {
	Config  config.DiscoveryConfig
	Logger  *logging.Logger
	Store   DeviceRegistry
	VenueID string
	Version string

	// Port is the gateway's HTTP/WebSocket listen port, advertised in
	// the mDNS record so devices know where to connect.
	Port int
}

// Service advertises the gateway over mDNS and browses for devices.
//
// Thread Safety:
//   - Start/Stop are lifecycle calls, not safe for concurrent use.
//   - Browse passes run on an internal goroutine and only touch the
//     store through the DeviceRegistry interface.
type Service struct {
	cfg     config.DiscoveryConfig
	logger  *logging.Logger
	store   DeviceRegistry
	venueID string
	version string
	port    int

	server *zeroconf.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a discovery service. It does not touch the network;
// call Start to advertise and begin browsing.
func New(deps Deps) (*Service, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("discovery: logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("discovery: store is required")
	}
	return &Service{
		cfg:     deps.Config,
		logger:  deps.Logger.With("component", "discovery"),
		store:   deps.Store,
		venueID: deps.VenueID,
		version: deps.Version,
		port:    deps.Port,
	}, nil
}

// Start registers the gateway's mDNS service and launches the device
// browse loop. Returns an error only if the initial registration fails
// outright; browse failures are logged and retried.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	instance := "edge-gateway-" + s.venueID
	txt := []string{
		"venue_id=" + s.venueID,
		"version=" + s.version,
	}

	server, err := zeroconf.Register(instance, s.cfg.ServiceName, mdnsDomain, s.port, txt, nil)
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", s.cfg.ServiceName, err)
	}

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	s.logger.Info("mdns advertisement started",
		"instance", instance,
		"service", s.cfg.ServiceName,
		"port", s.port,
	)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.browseLoop(loopCtx)

	return nil
}

// Stop withdraws the advertisement and stops the browse loop. It waits
// for an in-flight browse pass to finish.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()

	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server != nil {
		server.Shutdown()
		s.logger.Info("mdns advertisement stopped")
	}
}

// browseLoop periodically queries the LAN for devices advertising the
// device service type. An immediate pass runs on start.
func (s *Service) browseLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := s.cfg.GetBrowseInterval()
	if interval <= 0 {
		interval = defaultBrowseInterval
	}

	s.browseOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.browseOnce(ctx)
		}
	}
}

// browseOnce runs a single bounded browse pass and upserts responders.
func (s *Service) browseOnce(ctx context.Context) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		s.logger.Warn("mdns resolver init failed", "error", err)
		return
	}

	passCtx, cancel := context.WithTimeout(ctx, browseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(passCtx, s.cfg.DeviceServiceName, mdnsDomain, entries); err != nil {
		s.logger.Warn("mdns browse failed", "service", s.cfg.DeviceServiceName, "error", err)
		return
	}

	found := 0
	for entry := range entries {
		device, ok := deviceFromEntry(entry)
		if !ok {
			s.logger.Debug("mdns response missing device_id txt record", "instance", entry.Instance)
			continue
		}
		if err := s.store.UpsertDevice(ctx, device); err != nil {
			s.logger.Warn("discovered device upsert failed", "device_id", device.DeviceID, "error", err)
			continue
		}
		found++
		s.logger.Debug("device discovered",
			"device_id", device.DeviceID,
			"device_type", device.DeviceType,
			"instance", entry.Instance,
		)
	}

	if found > 0 {
		s.logger.Info("mdns browse pass complete", "devices", found)
	}
}

// deviceFromEntry maps an mDNS response to a device record. Devices
// advertise their identity in TXT records: device_id is required,
// device_name and device_type are optional (the instance name and
// "unknown" stand in). The responder's first address becomes the
// recorded IP.
func deviceFromEntry(entry *zeroconf.ServiceEntry) (*store.Device, bool) {
	txt := parseTXT(entry.Text)

	id := txt["device_id"]
	if id == "" {
		return nil, false
	}

	name := txt["device_name"]
	if name == "" {
		name = entry.Instance
	}
	deviceType := txt["device_type"]
	if deviceType == "" {
		deviceType = "unknown"
	}

	d := &store.Device{
		DeviceID:   id,
		DeviceName: name,
		DeviceType: deviceType,
	}
	if len(entry.AddrIPv4) > 0 {
		ip := entry.AddrIPv4[0].String()
		d.IPAddress = &ip
	}
	return d, true
}

// parseTXT splits "key=value" TXT records into a map. Records without
// an "=" are ignored.
func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, rec := range records {
		key, value, ok := strings.Cut(rec, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}
