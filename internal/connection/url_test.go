package connection

import (
	"errors"
	"testing"
)

func TestCleanToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", "abc"},
		{"  abc  ", "abc"},
		{"Bearer abc", "abc"},
		{"bearer   abc ", "abc"},
		{"BEARER abc", "abc"},
		{"Bearer ", ""},
		{"Bearerabc", "Bearerabc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanToken(tt.in); got != tt.want {
			t.Errorf("CleanToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildConnectURL(t *testing.T) {
	got, err := BuildConnectURL("wss://api.example.com/ws/", "connect", "Bearer a b+c/=")
	if err != nil {
		t.Fatalf("BuildConnectURL: %v", err)
	}
	want := "wss://api.example.com/ws/connect?token=a+b%2Bc%2F%3D"
	if got != want {
		t.Errorf("BuildConnectURL = %q, want %q", got, want)
	}
}

func TestBuildConnectURL_EmptyToken(t *testing.T) {
	for _, token := range []string{"", "   ", "Bearer  "} {
		if _, err := BuildConnectURL("ws://localhost", "/connect", token); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("BuildConnectURL(%q) error = %v, want ErrEmptyToken", token, err)
		}
	}
}

func TestBuildLeaderboardURL(t *testing.T) {
	tests := []struct {
		name string
		p    LeaderboardParams
		want string
	}{
		{"no params", LeaderboardParams{}, "ws://h/ws/leaderboard"},
		{"pan india all time", LeaderboardParams{Scope: "pan-india", Period: "all"}, "ws://h/ws/leaderboard?type=pan-india"},
		{"state weekly", LeaderboardParams{Scope: "state", ScopeID: " KA ", Period: "weekly"}, "ws://h/ws/leaderboard?period=weekly&scope_id=KA&type=state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildLeaderboardURL("ws://h/ws", "/leaderboard", tt.p); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
