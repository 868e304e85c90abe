package protocol

import (
	"bytes"
	"encoding/json"
)

// FrameKind classifies a raw inbound frame.
type FrameKind int

const (
	FrameMalformed FrameKind = iota
	FrameBarePing
	FramePing
	FrameMessage
)

func (k FrameKind) String() string {
	switch k {
	case FrameBarePing:
		return "bare_ping"
	case FramePing:
		return "ping"
	case FrameMessage:
		return "message"
	default:
		return "malformed"
	}
}

// Frame is a classified inbound frame.
type Frame struct {
	Kind     FrameKind
	Envelope Envelope // Set for FrameMessage and FramePing
}

// Keep-alive replies.
var (
	BarePong = []byte("Pong")
	PongJSON = []byte(`{"type":"pong"}`)
)

// Classify parses a raw text frame.
func Classify(raw []byte) Frame {
	if string(raw) == "Ping" || string(raw) == "ping" {
		return Frame{Kind: FrameBarePing}
	}

	env, err := ParseEnvelope(raw)
	if err != nil {
		return Frame{Kind: FrameMalformed}
	}

	if env.Type == TypePing {
		return Frame{Kind: FramePing, Envelope: env}
	}
	return Frame{Kind: FrameMessage, Envelope: env}
}

// ParseEnvelope decodes a JSON object envelope and picks its body field.
// Non-object JSON (numbers, arrays, strings, null) is rejected.
func ParseEnvelope(raw []byte) (Envelope, error) {
	if !isObject(raw) {
		return Envelope{}, ErrNotObject
	}

	var wire wireEnvelope
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{}, err
	}

	body := wire.Payload
	if isNull(body) {
		body = wire.Data
	}
	if isNull(body) {
		body = nil
	}

	return Envelope{Type: wire.Type, Payload: body}, nil
}

// Encode renders an outbound value as a text frame. Strings and byte slices
// pass through untouched; anything else is JSON encoded.
func Encode(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case json.RawMessage:
		return t, nil
	default:
		return json.Marshal(v)
	}
}

// DecodeNotification normalizes an envelope body as a notification. Any
// JSON object is accepted; known fields are coerced to their Go types and
// the object itself is kept in Raw.
func DecodeNotification(payload json.RawMessage) (Notification, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return Notification{}, err
	}
	n := Notification{
		ID:        stringField(obj, "id"),
		Type:      NotificationKind(stringField(obj, "type")),
		Title:     stringField(obj, "title"),
		Message:   stringField(obj, "message"),
		CreatedAt: stringField(obj, "created_at"),
		Raw:       cloneRaw(payload),
	}
	if data, ok := obj["data"].(map[string]interface{}); ok {
		n.Data = data
	}
	return n, nil
}

// DecodeLeaderboard normalizes an envelope body as a leaderboard snapshot.
// Entries that are not objects are skipped.
func DecodeLeaderboard(payload json.RawMessage) (LeaderboardSnapshot, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return LeaderboardSnapshot{}, err
	}
	s := LeaderboardSnapshot{
		Type:    stringField(obj, "type"),
		Scope:   LeaderboardScope(stringField(obj, "scope")),
		ScopeID: stringField(obj, "scope_id"),
		Raw:     cloneRaw(payload),
	}
	items, _ := obj["entries"].([]interface{})
	for _, item := range items {
		e, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		s.Entries = append(s.Entries, LeaderboardEntry{
			Rank:        int(intField(e, "rank")),
			UserID:      stringField(e, "user_id"),
			UserName:    stringField(e, "user_name"),
			UserAvatar:  stringField(e, "user_avatar"),
			XP:          floatField(e, "xp"),
			Level:       int(intField(e, "level")),
			StateName:   stringField(e, "state_name"),
			CollegeName: stringField(e, "college_name"),
		})
	}
	return s, nil
}

func decodeObject(payload json.RawMessage) (map[string]interface{}, error) {
	if len(payload) == 0 {
		return nil, ErrMissingBody
	}
	if !isObject(payload) {
		return nil, ErrNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
