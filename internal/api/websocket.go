package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/infrastructure/logging"
	"github.com/platefront/edge-gateway/internal/store"
)

// WebSocket message types, device to gateway.
const (
	WSTypeRegister     = "REGISTER"
	WSTypeHeartbeat    = "HEARTBEAT"
	WSTypeQueueCommand = "QUEUE_COMMAND"
	WSTypeSyncStatus   = "SYNC_STATUS"
)

// WebSocket message types, gateway to device. SYNC_STATUS is shared: a
// device request and the gateway's reply use the same tag.
const (
	WSTypeRegistered    = "REGISTERED"
	WSTypeHeartbeatAck  = "HEARTBEAT_ACK"
	WSTypeCommandQueued = "COMMAND_QUEUED"
	WSTypeError         = "ERROR"
)

// wsSendBufferSize is the per-client outbound message buffer size.
const wsSendBufferSize = 256

// WSFrame is an inbound message from a device. The payload stays raw until
// the handler for the frame type decodes it.
type WSFrame struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"deviceId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// WSMessage is an outbound message to a device.
type WSMessage struct {
	Type      string `json:"type"`
	DeviceID  string `json:"deviceId,omitempty"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// registerPayload is the REGISTER frame body.
type registerPayload struct {
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType"`
	PairingCode string `json:"pairingCode,omitempty"`
}

// queueCommandPayload is the QUEUE_COMMAND frame body. The command payload
// is opaque; the gateway never interprets it.
type queueCommandPayload struct {
	CommandType    string          `json:"commandType"`
	CommandPayload json.RawMessage `json:"commandPayload"`
}

// HubDeps holds the dependencies required by the device hub.
type HubDeps struct {
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Store   *store.Store
	Engine  SyncEngine
	Pairing *pairingCodes
}

// Hub manages WebSocket connections from in-venue devices.
//
// Each connection may bind itself to a device ID via REGISTER, after which
// the hub can address it directly with SendToDevice. Disconnect removes the
// binding only; the persisted device record is retained.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	store   *store.Store
	engine  SyncEngine
	pairing *pairingCodes

	mu       sync.RWMutex
	clients  map[*WSClient]struct{}
	byDevice map[string]*WSClient
}

// WSClient represents a connected device.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	remoteIP string

	mu       sync.RWMutex
	deviceID string // set by REGISTER; empty until then
}

// upgrader configures the WebSocket upgrader. Connections come from the
// venue LAN, not browsers, so origin checking is a no-op.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// NewHub creates a new device hub.
func NewHub(deps HubDeps) *Hub {
	return &Hub{
		cfg:      deps.WS,
		logger:   deps.Logger,
		store:    deps.Store,
		engine:   deps.Engine,
		pairing:  deps.Pairing,
		clients:  make(map[*WSClient]struct{}),
		byDevice: make(map[string]*WSClient),
	}
}

// Run blocks until the context is cancelled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client and its device binding.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	deviceID := client.boundDevice()

	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	if deviceID != "" && h.byDevice[deviceID] == client {
		delete(h.byDevice, deviceID)
	}
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected",
		"device_id", deviceID, "clients", h.ClientCount())
}

// bindDevice makes a client addressable by device ID. A newer connection
// for the same device displaces the old binding.
func (h *Hub) bindDevice(deviceID string, client *WSClient) {
	client.mu.Lock()
	client.deviceID = deviceID
	client.mu.Unlock()

	h.mu.Lock()
	h.byDevice[deviceID] = client
	h.mu.Unlock()
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
}

// SendToDevice sends a message to one registered device.
// Returns false when no connection is bound to the device ID.
func (h *Hub) SendToDevice(deviceID, msgType string, payload any) bool {
	h.mu.RLock()
	client, ok := h.byDevice[deviceID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal device message", "error", err)
		return false
	}
	client.trySend(data)
	return true
}

// BroadcastSyncStatus pushes queue counters to every connected device.
// The sync engine calls this after each pass.
func (h *Hub) BroadcastSyncStatus(stats store.QueueStats) {
	h.Broadcast(WSTypeSyncStatus, stats)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close() //nolint:errcheck
		}
		delete(h.clients, client)
	}
	h.byDevice = make(map[string]*WSClient)
}

// handleWebSocket upgrades the HTTP connection and starts the client pumps.
// Devices authenticate by pairing, not per-connection credentials; the hub
// only talks to the venue LAN.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	client := &WSClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		remoteIP: remoteIP,
	}

	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads frames from the device connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any device frame resets the read deadline; heartbeats keep the
		// connection alive even without protocol-level pongs.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleFrame(message)
	}
}

// writePump writes messages to the device connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame processes one inbound device frame. Malformed frames and
// unknown types get an ERROR reply; the connection stays open.
func (c *WSClient) handleFrame(data []byte) {
	var frame WSFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError("", "invalid JSON frame")
		return
	}
	if frame.DeviceID == "" {
		c.sendError("", "deviceId is required")
		return
	}

	switch frame.Type {
	case WSTypeRegister:
		c.handleRegister(frame)
	case WSTypeHeartbeat:
		c.handleHeartbeat(frame)
	case WSTypeQueueCommand:
		c.handleQueueCommand(frame)
	case WSTypeSyncStatus:
		c.handleSyncStatus(frame)
	default:
		c.sendError(frame.DeviceID, "unknown message type: "+frame.Type)
	}
}

// handleRegister persists the device record, binds the connection for
// addressed sends, and optionally redeems a pairing code.
func (c *WSClient) handleRegister(frame WSFrame) {
	var reg registerPayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &reg); err != nil {
			c.sendError(frame.DeviceID, "invalid REGISTER payload")
			return
		}
	}
	if reg.DeviceName == "" || reg.DeviceType == "" {
		c.sendError(frame.DeviceID, "deviceName and deviceType are required")
		return
	}

	paired := false
	if reg.PairingCode != "" {
		if !c.hub.pairing.Redeem(reg.PairingCode) {
			c.sendError(frame.DeviceID, "invalid or expired pairing code")
			return
		}
		paired = true
	}

	ctx := context.Background()
	err := c.hub.store.UpsertDevice(ctx, &store.Device{
		DeviceID:   frame.DeviceID,
		DeviceName: reg.DeviceName,
		DeviceType: reg.DeviceType,
		IPAddress:  &c.remoteIP,
		Paired:     paired,
	})
	if err != nil {
		c.hub.logger.Error("registering device", "device_id", frame.DeviceID, "error", err)
		c.sendError(frame.DeviceID, "failed to register device")
		return
	}

	c.hub.bindDevice(frame.DeviceID, c)

	// Pairing is sticky; report the record's state, not this frame's.
	device, err := c.hub.store.GetDevice(ctx, frame.DeviceID)
	if err == nil {
		paired = device.Paired
	}

	c.hub.logger.Info("device registered",
		"device_id", frame.DeviceID,
		"device_type", reg.DeviceType,
		"ip", c.remoteIP,
		"paired", paired,
	)
	c.sendResponse(WSTypeRegistered, frame.DeviceID, map[string]any{
		"deviceId": frame.DeviceID,
		"paired":   paired,
	})
}

// handleHeartbeat refreshes the device's liveness timestamp.
func (c *WSClient) handleHeartbeat(frame WSFrame) {
	err := c.hub.store.UpdateDeviceLastSeen(context.Background(), frame.DeviceID, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			c.sendError(frame.DeviceID, "unknown device; send REGISTER first")
			return
		}
		c.hub.logger.Error("updating device last_seen", "device_id", frame.DeviceID, "error", err)
		c.sendError(frame.DeviceID, "failed to record heartbeat")
		return
	}
	c.sendResponse(WSTypeHeartbeatAck, frame.DeviceID, nil)
}

// handleQueueCommand enqueues a command on behalf of the device. The reply
// confirms durable local queueing only; cloud confirmation is asynchronous.
func (c *WSClient) handleQueueCommand(frame WSFrame) {
	var cmd queueCommandPayload
	if err := json.Unmarshal(frame.Payload, &cmd); err != nil {
		c.sendError(frame.DeviceID, "invalid QUEUE_COMMAND payload")
		return
	}
	if cmd.CommandType == "" {
		c.sendError(frame.DeviceID, "commandType is required")
		return
	}

	deviceID := frame.DeviceID
	result, err := c.hub.engine.Enqueue(context.Background(), cmd.CommandType, cmd.CommandPayload, &deviceID)
	if err != nil {
		c.hub.logger.Error("enqueueing device command",
			"device_id", frame.DeviceID, "type", cmd.CommandType, "error", err)
		c.sendError(frame.DeviceID, "failed to queue command")
		return
	}

	c.sendResponse(WSTypeCommandQueued, frame.DeviceID, map[string]any{
		"requestId": result.RequestID,
		"commandId": result.CommandID,
	})
}

// handleSyncStatus replies with current queue counters.
func (c *WSClient) handleSyncStatus(frame WSFrame) {
	stats, err := c.hub.engine.Stats(context.Background())
	if err != nil {
		c.hub.logger.Error("reading queue stats", "error", err)
		c.sendError(frame.DeviceID, "failed to read sync status")
		return
	}
	c.sendResponse(WSTypeSyncStatus, frame.DeviceID, stats)
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// boundDevice returns the device ID this connection registered as.
func (c *WSClient) boundDevice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceID
}

// sendResponse sends a reply to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(msgType, deviceID string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an ERROR reply to the client.
func (c *WSClient) sendError(deviceID, message string) {
	c.sendResponse(WSTypeError, deviceID, map[string]string{"message": message})
}
