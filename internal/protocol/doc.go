// Package protocol defines the realtime wire format.
//
// Every inbound text frame is one of:
//   - a bare keep-alive ("Ping" or "ping"), answered with the literal "Pong"
//   - a structured keep-alive ({"type":"ping"}), answered with {"type":"pong"}
//   - an envelope {"type": ..., "payload"|"data": ...}
//   - something else, which is malformed and dropped
//
// Envelopes are normalized at parse time: "payload" wins over "data", so
// consumers only ever see Envelope.Payload.
package protocol
