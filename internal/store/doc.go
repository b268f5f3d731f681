// Package store holds the lead dataset currently being served.
//
// Store wraps a Loader (file or URL) and keeps the last loaded table with its
// full-table KPIs behind a sync.RWMutex. Reload swaps the state atomically
// and notifies OnReload subscribers (WebSocket hub, alerts, telemetry).
// Watch drives Reload from fsnotify events on a local file; Run drives it
// from a ticker for remote sources.
//
// A failed load never stops the service: the store serves an empty table and
// exposes the error message as State.LoadError until the next good load.
package store
