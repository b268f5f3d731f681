// Package config loads and watches the leadboard configuration file.
//
// Top-level types:
//   - Config{Server, Dataset, Schema, View, Alerts}, parsed from YAML or TOML
//   - ServerConfig: http_port, allowed_origins, broadcast_interval, auth
//   - DatasetConfig: name, path | url, watch, poll_interval, timeout, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none) for remote datasets;
//     Key(), Token() and Password() resolve from environment variables
//   - ViewConfig: default visible columns and display labels
//   - AlertsConfig: rules and webhook targets
//
// Load(path) applies defaults (port 8080, 5s broadcast, 30s fetch timeout,
// default column schema), unmarshals, then validates required fields and
// enums. LoadEnv reads .env files with godotenv before secrets are resolved.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. WatchFile is the same loop without
// the parse step.
package config
