package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/variantsgg/variants/internal/game"
)

func TestParseJoinPayload(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		payload  string
		wantChat int64
		wantTok  string
		wantOK   bool
	}{
		"group chat":      {"-1001234567_abc-def", -1001234567, "abc-def", true},
		"positive chat":   {"42_token", 42, "token", true},
		"token underscore": {"42_to_ken", 42, "to_ken", true},
		"missing token":   {"42_", 0, "", false},
		"no separator":    {"42", 0, "", false},
		"garbage id":      {"abc_token", 0, "", false},
		"empty":           {"", 0, "", false},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			chatID, token, ok := parseJoinPayload(tc.payload)
			if ok != tc.wantOK || chatID != tc.wantChat || token != tc.wantTok {
				t.Errorf("parseJoinPayload(%q) = (%d, %q, %v), want (%d, %q, %v)",
					tc.payload, chatID, token, ok, tc.wantChat, tc.wantTok, tc.wantOK)
			}
		})
	}
}

func TestStartErrorText(t *testing.T) {
	t.Parallel()

	if got := startErrorText(game.ErrAlreadyRunning); !strings.Contains(got, "already running") {
		t.Errorf("already running text: %q", got)
	}
	if got := startErrorText(&game.CooldownError{Remaining: 90 * time.Second}); !strings.Contains(got, "91") {
		t.Errorf("cooldown text: %q", got)
	}
	if got := startErrorText(errors.New("database exploded")); got != "" {
		t.Errorf("unexpected text for internal error: %q", got)
	}
	if got := startErrorText(nil); got != "" {
		t.Errorf("text for nil error: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 300); got != "short" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("я", 400)
	got := truncate(long, 300)
	if runes := []rune(got); len(runes) != 300 {
		t.Errorf("truncated to %d runes", len(runes))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("missing ellipsis")
	}
}
