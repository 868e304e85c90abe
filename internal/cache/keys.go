package cache

import "strings"

// Key identifies a cached query. Keys are hierarchical: invalidating
// ["user"] also invalidates ["user", "tasks", "history"].
type Key []string

// String renders the key as a slash-joined path.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with every segment of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Query keys used across the app.
var (
	KeyUser        = Key{"user"}
	KeyTasks       = Key{"tasks"}
	KeyTaskHistory = Key{"user", "tasks", "history"}
	KeyBadges      = Key{"user", "badges"}
	KeyStates      = Key{"states"}
)

// KeyColleges is the key for the colleges of one state.
func KeyColleges(stateID string) Key {
	return Key{"colleges", stateID}
}

// KeyLeaderboard is the key for one leaderboard view. An empty period means "all".
func KeyLeaderboard(scope, scopeID, period string) Key {
	if period == "" {
		period = "all"
	}
	return Key{"leaderboard", scope, scopeID, period}
}
