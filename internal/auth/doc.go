// Package auth provides the API key middleware that protects the REST API
// and the WebSocket stream.
package auth
