// Package domain holds the publish receipt shared by the telemetry emitters.
package domain

import "time"

// Transports a receipt can report.
const (
	TransportREST = "rest"
	TransportGRPC = "grpc"
)

// Receipt records one accepted platform event.
type Receipt struct {
	EventID   string `json:"event_id"`
	Transport string `json:"transport"`
	Topic     string `json:"topic"`
	// SchemaID is empty for the REST transport.
	SchemaID string `json:"schema_id,omitempty"`
	// RecordID is the id returned by the REST create call.
	RecordID string `json:"record_id,omitempty"`
	// ReplayID is the hex-encoded replay id returned by the Pub/Sub API.
	ReplayID    string    `json:"replay_id,omitempty"`
	InstanceURL string    `json:"instance_url"`
	PublishedAt time.Time `json:"published_at"`
}
