package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/rickgao/rewards-realtime/internal/cache"
	"github.com/rickgao/rewards-realtime/internal/feed"
	"github.com/rickgao/rewards-realtime/internal/protocol"
)

type recordingInvalidator struct {
	mu       sync.Mutex
	prefixes []string
}

func (i *recordingInvalidator) Invalidate(ctx context.Context, prefix cache.Key) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.prefixes = append(i.prefixes, prefix.String())
	return 0
}

type recordingJournal struct {
	notifications []protocol.Notification
	snapshots     []protocol.LeaderboardSnapshot
}

func (j *recordingJournal) RecordNotification(n protocol.Notification) {
	j.notifications = append(j.notifications, n)
}

func (j *recordingJournal) RecordLeaderboard(s protocol.LeaderboardSnapshot) {
	j.snapshots = append(j.snapshots, s)
}

func newTestRouter() (*Router, *feed.Store, *recordingInvalidator) {
	store := feed.NewStore(feed.DefaultNotificationCapacity)
	inv := &recordingInvalidator{}
	return NewRouter(store, inv, slog.Default()), store, inv
}

func TestRouter_BarePing(t *testing.T) {
	for _, ping := range []string{"Ping", "ping"} {
		r, store, _ := newTestRouter()

		reply := r.Handle([]byte(ping))

		if string(reply) != "Pong" {
			t.Errorf("Handle(%q) reply = %q, want Pong", ping, reply)
		}
		if _, ok := store.LastMessage.Get(); ok {
			t.Errorf("Handle(%q) updated last message", ping)
		}
	}
}

func TestRouter_StructuredPing(t *testing.T) {
	r, store, _ := newTestRouter()

	reply := r.Handle([]byte(`{"type":"ping"}`))

	var env map[string]interface{}
	if err := json.Unmarshal(reply, &env); err != nil {
		t.Fatalf("reply is not JSON: %q", reply)
	}
	if env["type"] != "pong" || len(env) != 1 {
		t.Errorf("reply = %s, want {\"type\":\"pong\"}", reply)
	}
	if _, ok := store.LastMessage.Get(); ok {
		t.Error("structured ping updated last message")
	}
	if got := r.Stats().KeepAlives; got != 1 {
		t.Errorf("KeepAlives = %d, want 1", got)
	}
}

func TestRouter_MalformedIsInert(t *testing.T) {
	r, store, inv := newTestRouter()

	for _, raw := range []string{"hello", `{"type":`, "12", `["task"]`} {
		if reply := r.Handle([]byte(raw)); reply != nil {
			t.Errorf("Handle(%q) reply = %q, want nil", raw, reply)
		}
	}

	if _, ok := store.LastMessage.Get(); ok {
		t.Error("malformed frame updated last message")
	}
	if store.Notifications.Len() != 0 {
		t.Error("malformed frame touched notifications")
	}
	if len(inv.prefixes) != 0 {
		t.Error("malformed frame invalidated the cache")
	}
	if got := r.Stats().ParseErrors; got != 4 {
		t.Errorf("ParseErrors = %d, want 4", got)
	}
}

func TestRouter_Notifications(t *testing.T) {
	r, store, _ := newTestRouter()
	j := &recordingJournal{}
	r = NewRouter(store, nil, nil, WithJournal(j))

	for i := 0; i < 60; i++ {
		frame := fmt.Sprintf(`{"type":"notification","payload":{"id":"n-%d","type":"new_follower","title":"t"}}`, i)
		r.Handle([]byte(frame))
	}

	items := store.Notifications.List()
	if len(items) != 50 {
		t.Fatalf("notifications = %d, want 50", len(items))
	}
	if items[0].ID != "n-59" || items[49].ID != "n-10" {
		t.Errorf("newest/oldest = %s/%s, want n-59/n-10", items[0].ID, items[49].ID)
	}
	if len(j.notifications) != 60 {
		t.Errorf("journal got %d notifications, want 60", len(j.notifications))
	}
}

func TestRouter_NotificationFromDataField(t *testing.T) {
	r, store, _ := newTestRouter()

	r.Handle([]byte(`{"type":"notification","data":{"id":"legacy"}}`))

	items := store.Notifications.List()
	if len(items) != 1 || items[0].ID != "legacy" {
		t.Errorf("notifications = %+v, want [legacy]", items)
	}
}

func TestRouter_NotificationNonObjectPayload(t *testing.T) {
	r, store, _ := newTestRouter()

	r.Handle([]byte(`{"type":"notification","payload":"text only"}`))
	r.Handle([]byte(`{"type":"notification"}`))

	if store.Notifications.Len() != 0 {
		t.Errorf("notifications = %d, want 0", store.Notifications.Len())
	}
	last, ok := store.LastMessage.Get()
	if !ok || last.Type != protocol.TypeNotification {
		t.Errorf("last message = %+v, want notification envelope", last)
	}
	if got := r.Stats().InvalidPayloads; got != 2 {
		t.Errorf("InvalidPayloads = %d, want 2", got)
	}
}

func TestRouter_LooselyTypedPayloadsAreStored(t *testing.T) {
	r, store, _ := newTestRouter()
	j := &recordingJournal{}
	r.journal = j

	r.Handle([]byte(`{"type":"notification","payload":{"id":42,"title":"hi","data":"not an object"}}`))

	items := store.Notifications.List()
	if len(items) != 1 || items[0].ID != "42" || items[0].Title != "hi" {
		t.Fatalf("notifications = %+v, want one with id 42", items)
	}
	if string(items[0].Raw) != `{"id":42,"title":"hi","data":"not an object"}` {
		t.Errorf("Raw = %s", items[0].Raw)
	}

	tests := []struct {
		name    string
		payload string
		check   func(protocol.LeaderboardSnapshot) bool
	}{
		{
			name:    "fractional xp",
			payload: `{"scope":"state","entries":[{"rank":1,"user_id":"u1","xp":120.5}]}`,
			check: func(s protocol.LeaderboardSnapshot) bool {
				return len(s.Entries) == 1 && s.Entries[0].XP == 120.5
			},
		},
		{
			name:    "numeric user id",
			payload: `{"scope":"state","entries":[{"rank":1,"user_id":7,"xp":10}]}`,
			check: func(s protocol.LeaderboardSnapshot) bool {
				return len(s.Entries) == 1 && s.Entries[0].UserID == "7"
			},
		},
		{
			name:    "string rank and junk entries",
			payload: `{"scope":"college","entries":[{"rank":"3","user_id":"u3"},"junk",null]}`,
			check: func(s protocol.LeaderboardSnapshot) bool {
				return len(s.Entries) == 1 && s.Entries[0].Rank == 3
			},
		},
		{
			name:    "entries not a list",
			payload: `{"scope":"pan-india","entries":{"rank":1}}`,
			check: func(s protocol.LeaderboardSnapshot) bool {
				return s.Scope == protocol.ScopePanIndia && len(s.Entries) == 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.Leaderboard.Reset()
			r.Handle([]byte(`{"type":"leaderboard_data","payload":` + tt.payload + `}`))

			snap, ok := store.Leaderboard.Get()
			if !ok {
				t.Fatal("expected leaderboard snapshot")
			}
			if !tt.check(snap) {
				t.Errorf("snapshot = %+v", snap)
			}
		})
	}

	if got := r.Stats().InvalidPayloads; got != 0 {
		t.Errorf("InvalidPayloads = %d, want 0", got)
	}
	if len(j.notifications) != 1 || len(j.snapshots) != len(tests) {
		t.Errorf("journal got %d/%d, want 1/%d", len(j.notifications), len(j.snapshots), len(tests))
	}
}

func TestRouter_LeaderboardReplacesSnapshot(t *testing.T) {
	r, store, _ := newTestRouter()

	r.Handle([]byte(`{"type":"leaderboard_data","payload":{"scope":"pan-india","entries":[{"rank":1,"user_id":"a"}]}}`))
	r.Handle([]byte(`{"type":"leaderboard_data","payload":{"scope":"college","scope_id":"c9","entries":[{"rank":1,"user_id":"b"},{"rank":2,"user_id":"c"}]}}`))

	snap, ok := store.Leaderboard.Get()
	if !ok {
		t.Fatal("expected leaderboard snapshot")
	}
	if snap.Scope != protocol.ScopeCollege || snap.ScopeID != "c9" || len(snap.Entries) != 2 {
		t.Errorf("snapshot = %+v, want latest college snapshot", snap)
	}
}

func TestRouter_TaskInvalidatesCache(t *testing.T) {
	r, store, inv := newTestRouter()

	r.Handle([]byte(`{"type":"task","payload":{"anything":true}}`))

	if len(inv.prefixes) != 1 || inv.prefixes[0] != "tasks" {
		t.Errorf("invalidated = %v, want [tasks]", inv.prefixes)
	}
	last, _ := store.LastMessage.Get()
	if last.Type != protocol.TypeTask {
		t.Errorf("last message type = %q, want task", last.Type)
	}
}

func TestRouter_TaskWithRealCache(t *testing.T) {
	store := feed.NewStore(10)
	qc := cache.New(0)
	qc.Set(cache.KeyTasks, []string{"t1"})
	r := NewRouter(store, qc, nil)

	r.Handle([]byte(`{"type":"task"}`))

	if e, _ := qc.Get(cache.KeyTasks); e.Fresh {
		t.Error("tasks entry should be stale after a task message")
	}
}

func TestRouter_UnknownTypeOnlyUpdatesLastMessage(t *testing.T) {
	r, store, inv := newTestRouter()

	r.Handle([]byte(`{"type":"chat","payload":{"text":"hi"}}`))

	last, ok := store.LastMessage.Get()
	if !ok || last.Type != "chat" || string(last.Payload) != `{"text":"hi"}` {
		t.Errorf("last message = %+v, want chat envelope", last)
	}
	if store.Notifications.Len() != 0 || len(inv.prefixes) != 0 {
		t.Error("unknown type had a built-in effect")
	}
	if _, ok := store.Leaderboard.Get(); ok {
		t.Error("unknown type set a leaderboard snapshot")
	}

	stats := r.Stats()
	if stats.UnknownMessages != 1 || stats.MessagesRouted != 1 || stats.FramesReceived != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
