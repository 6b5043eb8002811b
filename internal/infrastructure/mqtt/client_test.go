package mqtt

import (
	"strings"
	"testing"

	"github.com/platefront/edge-gateway/internal/infrastructure/config"
)

func TestTopics(t *testing.T) {
	topics := Topics{VenueID: "venue-42"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"command queued", topics.CommandQueued(), "edge/venue-42/queue/command_queued"},
		{"command failed", topics.CommandFailed(), "edge/venue-42/queue/command_failed"},
		{"sync pass", topics.SyncPass(), "edge/venue-42/sync/pass"},
		{"system status", topics.SystemStatus(), "edge/venue-42/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	t.Run("plain tcp", func(t *testing.T) {
		opts := buildClientOptions(config.MQTTConfig{
			Host: "localhost", Port: 1883, ClientID: "edge-gw",
		})
		if len(opts.Servers) != 1 {
			t.Fatalf("servers = %d, want 1", len(opts.Servers))
		}
		if got := opts.Servers[0].String(); got != "tcp://localhost:1883" {
			t.Errorf("broker = %s, want tcp://localhost:1883", got)
		}
		if opts.ClientID != "edge-gw" {
			t.Errorf("client id = %s, want edge-gw", opts.ClientID)
		}
	})

	t.Run("tls scheme", func(t *testing.T) {
		opts := buildClientOptions(config.MQTTConfig{
			Host: "broker.local", Port: 8883, TLS: true,
		})
		if got := opts.Servers[0].String(); !strings.HasPrefix(got, "ssl://") {
			t.Errorf("broker = %s, want ssl:// scheme", got)
		}
	})
}

func TestStatusPayload(t *testing.T) {
	p := statusPayload("offline", "edge-gw", "graceful_shutdown")
	for _, want := range []string{`"status":"offline"`, `"client_id":"edge-gw"`, `"reason":"graceful_shutdown"`} {
		if !strings.Contains(p, want) {
			t.Errorf("payload %s missing %s", p, want)
		}
	}

	p = statusPayload("online", "edge-gw", "")
	if strings.Contains(p, "reason") {
		t.Errorf("online payload %s should not carry a reason", p)
	}
}
