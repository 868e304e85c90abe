package connection

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var bearerPrefix = regexp.MustCompile(`(?i)^bearer\s+`)

// CleanToken strips surrounding whitespace and a leading "Bearer " prefix.
func CleanToken(token string) string {
	token = strings.TrimSpace(token)
	token = bearerPrefix.ReplaceAllString(token, "")
	return strings.TrimSpace(token)
}

// BuildConnectURL returns {base}{path}?token={token} for the authenticated socket.
func BuildConnectURL(base, path, token string) (string, error) {
	clean := CleanToken(token)
	if clean == "" {
		return "", ErrEmptyToken
	}

	endpoint := joinPath(base, path)
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("parse connect url: %w", err)
	}

	return endpoint + "?token=" + url.QueryEscape(clean), nil
}

// LeaderboardParams selects the public leaderboard stream.
type LeaderboardParams struct {
	Scope   string // pan-india, state, college
	ScopeID string // Required for state and college
	Period  string // all, weekly, monthly
}

// BuildLeaderboardURL returns the unauthenticated leaderboard stream URL.
// Period "all" is the server default and is omitted.
func BuildLeaderboardURL(base, path string, p LeaderboardParams) string {
	q := url.Values{}
	if p.Scope != "" {
		q.Set("type", p.Scope)
	}
	if id := strings.TrimSpace(p.ScopeID); id != "" {
		q.Set("scope_id", id)
	}
	if p.Period != "" && p.Period != "all" {
		q.Set("period", p.Period)
	}

	endpoint := joinPath(base, path)
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func joinPath(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
