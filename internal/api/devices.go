package api

import (
	"net/http"
	"time"

	"github.com/platefront/edge-gateway/internal/store"
)

// deviceOfflineThreshold is how long a device may go without a heartbeat
// before it is reported offline. Devices heartbeat far more often than this.
const deviceOfflineThreshold = 90 * time.Second

// deviceResponse is a device record with read-time derived liveness.
type deviceResponse struct {
	store.Device
	Online bool `json:"online"`
}

// handleListDevices returns the device registry. Records are never deleted;
// offline devices appear with online=false.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("listing devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	resp := make([]deviceResponse, 0, len(devices))
	for i := range devices {
		resp = append(resp, deviceResponse{
			Device: devices[i],
			Online: devices[i].Online(deviceOfflineThreshold),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": resp,
		"count":   len(resp),
	})
}
