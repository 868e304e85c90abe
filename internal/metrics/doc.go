// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket connection state, opens, closes, and scheduled reconnects
//   - Inbound frames by kind and routed messages by type
//   - Outbound sends and sends dropped while disconnected
//   - Journal batch sizes and write failures
package metrics
