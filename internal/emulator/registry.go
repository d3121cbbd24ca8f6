package emulator

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hamba/avro/v2"

	"platform-event-publisher/internal/pubsub"
)

const schemaExt = ".avsc"

type topicEntry struct {
	name       string
	schemaID   string
	canPublish bool
}

type schemaEntry struct {
	json   string
	schema avro.Schema
}

// Registry maps topic names to Avro schemas. Schema ids are derived from the schema's
// canonical form, so re-registering an identical schema yields the same id.
type Registry struct {
	mu      sync.RWMutex
	topics  map[string]topicEntry
	schemas map[string]schemaEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{topics: map[string]topicEntry{}, schemas: map[string]schemaEntry{}}
}

// RegisterTopic adds or replaces a topic. name may be given with or without the /event/ prefix;
// it is stored with it. Returns the schema id.
func (r *Registry) RegisterTopic(name, schemaJSON string, canPublish bool) (string, error) {
	schema, err := pubsub.ParseSchema(schemaJSON)
	if err != nil {
		return "", fmt.Errorf("emulator: topic %s: parse schema: %w", name, err)
	}
	fp := schema.Fingerprint()
	id := base64.RawURLEncoding.EncodeToString(fp[:16])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[id] = schemaEntry{json: schemaJSON, schema: schema}
	r.topics[TopicPath(name)] = topicEntry{name: TopicPath(name), schemaID: id, canPublish: canPublish}
	return id, nil
}

// LoadSchemaDir registers every <Topic>.avsc file in dir as a publishable topic /event/<Topic>.
// Returns the registered topic names.
func (r *Registry) LoadSchemaDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("emulator: read schema dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != schemaExt {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("emulator: read %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), schemaExt)
		if _, err := r.RegisterTopic(name, string(raw), true); err != nil {
			return nil, err
		}
		names = append(names, TopicPath(name))
	}
	return names, nil
}

func (r *Registry) topic(name string) (topicEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[name]
	return t, ok
}

func (r *Registry) schema(id string) (schemaEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	return s, ok
}

// objectSchema returns the schema for a REST object name (no /event/ prefix).
func (r *Registry) objectSchema(object string) (avro.Schema, bool) {
	t, ok := r.topic(TopicPath(object))
	if !ok {
		return nil, false
	}
	s, ok := r.schema(t.schemaID)
	return s.schema, ok
}

// TopicPath returns name with the /event/ prefix.
func TopicPath(name string) string {
	if strings.HasPrefix(name, "/event/") {
		return name
	}
	return "/event/" + name
}
