// Package api implements the HTTP surface of leadboard.
//
// New(opts) returns a chi router that serves:
//
//	GET  /api/v1/health         service and dataset status
//	GET  /api/v1/metrics        full and filtered KPIs, health, insights
//	GET  /api/v1/filters        status/source/conversion option lists
//	GET  /api/v1/leads          filtered rows through the view, paged
//	GET  /api/v1/view           column visibility and labels
//	PUT  /api/v1/view           replace visible columns and labels
//	POST /api/v1/view/reset     restore the default view
//	POST /api/v1/view/show-all  show every column
//	POST /api/v1/view/hide-all  hide every column
//	POST /api/v1/reload         reload the dataset now
//	GET  /api/v1/alerts         firing and recently resolved alerts
//	GET  /api/v1/source         dataset location and TLS cert status
//	GET  /api/v1/export         CSV view export
//	GET  /api/v1/export/full    CSV full export
//	GET  /ws/stream             WebSocket stream (Options.Stream)
//	GET  /metrics               Prometheus exposition (Options.Metrics)
//
// Filters are read from the status, source, converted and q query
// parameters. JSON endpoints answer errors as {"error": "..."}; CSV exports
// are gzip-compressed when the client accepts it.
package api
