// Package ws streams dashboard metrics to browsers over WebSocket.
//
// Each client picks its filters with the same query parameters as
// GET /api/v1/metrics (status, source, converted, q) and receives
//
//	{
//	  "event": "metrics",
//	  "data":  { /* same schema as GET /api/v1/metrics */ }
//	}
//
// once on connect, on every tick of the broadcast interval, and whenever
// Notify is called (the server hooks it to dataset reloads).
package ws
