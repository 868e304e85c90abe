package protocol

import (
	"encoding/json"
	"errors"
)

// Message types sent by the server.
const (
	TypeNotification      = "notification"
	TypeChat              = "chat"
	TypeLeaderboard       = "leaderboard"
	TypeTask              = "task"
	TypeSystem            = "system"
	TypeLeaderboardData   = "leaderboard_data"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypePing              = "ping"
	TypePong              = "pong"
)

// KnownType reports whether t is one of the message types above.
func KnownType(t string) bool {
	switch t {
	case TypeNotification, TypeChat, TypeLeaderboard, TypeTask, TypeSystem,
		TypeLeaderboardData, TypeLeaderboardUpdate, TypePing, TypePong:
		return true
	}
	return false
}

// Errors
var (
	ErrNotObject   = errors.New("payload is not a JSON object")
	ErrMissingBody = errors.New("envelope has no payload")
)

// Envelope is a normalized inbound or outbound message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wireEnvelope accepts both body field names the server uses.
type wireEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Data    json.RawMessage `json:"data"`
}

// NotificationKind is the sub-type carried inside a notification payload.
type NotificationKind string

const (
	NotificationTaskAssigned NotificationKind = "task_assigned"
	NotificationTaskApproved NotificationKind = "task_approved"
	NotificationTaskRejected NotificationKind = "task_rejected"
	NotificationNewFollower  NotificationKind = "new_follower"
	NotificationNewComment   NotificationKind = "new_comment"
	NotificationNewReaction  NotificationKind = "new_reaction"
)

// Known reports whether k is one of the kinds above.
func (k NotificationKind) Known() bool {
	switch k {
	case NotificationTaskAssigned, NotificationTaskApproved, NotificationTaskRejected,
		NotificationNewFollower, NotificationNewComment, NotificationNewReaction:
		return true
	}
	return false
}

// Notification is the normalized subset of a notification payload.
type Notification struct {
	ID        string                 `json:"id,omitempty"`
	Type      NotificationKind       `json:"type,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt string                 `json:"created_at,omitempty"`

	// Raw is the payload object as received.
	Raw json.RawMessage `json:"-"`
}

// LeaderboardScope selects which ranking a snapshot belongs to.
type LeaderboardScope string

const (
	ScopePanIndia LeaderboardScope = "pan-india"
	ScopeState    LeaderboardScope = "state"
	ScopeCollege  LeaderboardScope = "college"
)

// LeaderboardEntry is one ranked user in a snapshot.
type LeaderboardEntry struct {
	Rank        int     `json:"rank,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
	UserName    string  `json:"user_name,omitempty"`
	UserAvatar  string  `json:"user_avatar,omitempty"`
	XP          float64 `json:"xp,omitempty"`
	Level       int     `json:"level,omitempty"`
	StateName   string  `json:"state_name,omitempty"`
	CollegeName string  `json:"college_name,omitempty"`
}

// LeaderboardSnapshot is the normalized subset of a leaderboard_data payload.
type LeaderboardSnapshot struct {
	Type    string             `json:"type,omitempty"`
	Scope   LeaderboardScope   `json:"scope,omitempty"`
	ScopeID string             `json:"scope_id,omitempty"`
	Entries []LeaderboardEntry `json:"entries,omitempty"`

	// Raw is the payload object as received.
	Raw json.RawMessage `json:"-"`
}
