package events

import "encoding/json"

// Event name constants
const (
	// Subscribed is sent once to each new subscriber, before any other event.
	Subscribed     = "subscribed"
	GraphBuilt     = "graph.built"
	CacheFlushed   = "cache.flushed"
	ConfigReloaded = "config.reloaded"
)

// Names lists every event the server publishes.
var Names = []string{GraphBuilt, CacheFlushed, ConfigReloaded}

// Event is a generic SSE event from the server.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// GraphBuiltEvent is the typed payload for graph.built. It is sent when a
// graph was fetched from GitHub, not when it was served from the cache.
type GraphBuiltEvent struct {
	Username string `json:"username"`
	Theme    string `json:"theme"`
	Source   string `json:"source"`
	Total    int    `json:"total"`
	Ts       int64  `json:"ts"`
}

// CacheFlushedEvent is the typed payload for cache.flushed.
type CacheFlushedEvent struct {
	Reason  string `json:"reason"`
	Dropped int    `json:"dropped"`
	Ts      int64  `json:"ts"`
}

// ConfigReloadedEvent is the typed payload for config.reloaded.
type ConfigReloadedEvent struct {
	Source       string `json:"source"`
	DefaultTheme string `json:"defaultTheme"`
	Ts           int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.GraphBuiltEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Username, payload.Total)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
