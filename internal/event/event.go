// Package event holds the platform event model shared by the REST and Pub/Sub paths.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform fields the Pub/Sub schema requires on every event.
const (
	FieldCreatedDate = "CreatedDate"
	FieldCreatedByID = "CreatedById"
)

// Event is one platform event. Fields are the custom field values keyed by API name
// (e.g. "Product__c").
type Event struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

// New returns an event with a random UUID and the current time. fields is copied.
func New(fields map[string]any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Fields:    maps.Clone(fields),
	}
}

// Payload returns a copy of the custom fields, as sent over REST.
func (e *Event) Payload() map[string]any {
	if e.Fields == nil {
		return map[string]any{}
	}
	return maps.Clone(e.Fields)
}

// WithPlatformFields returns the Avro payload: the custom fields plus CreatedDate (epoch
// milliseconds) and CreatedById.
func (e *Event) WithPlatformFields(createdByID string) map[string]any {
	p := e.Payload()
	p[FieldCreatedDate] = e.CreatedAt.UnixMilli()
	p[FieldCreatedByID] = createdByID
	return p
}

// ParseFields parses "name=value" and "name:=json" pairs. "=" always yields a string;
// ":=" decodes the value as JSON, numbers kept as json.Number.
func ParseFields(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if i := strings.Index(pair, ":="); i >= 0 && i < strings.Index(pair+"=", "=") {
			name, raw := pair[:i], pair[i+2:]
			if name == "" {
				return nil, fmt.Errorf("event: field %q: empty name", pair)
			}
			dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("event: field %q: invalid json value: %w", name, err)
			}
			out[name] = v
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("event: field %q: want name=value or name:=json", pair)
		}
		out[name] = value
	}
	return out, nil
}
