package bot

import (
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

func TestGetUN(t *testing.T) {
	t.Parallel()

	for name, tt := range map[string]struct {
		user *api.User
		want string
	}{
		"nil user":           {nil, ""},
		"username":           {&api.User{UserName: "wavecut", FirstName: "Ignored"}, "wavecut"},
		"falls back to name": {&api.User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		"first name only":    {&api.User{FirstName: "Ada"}, "Ada"},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := GetUN(tt.user); got != tt.want {
				t.Errorf("GetUN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetFullName(t *testing.T) {
	t.Parallel()

	for name, tt := range map[string]struct {
		user *api.User
		want string
	}{
		"nil user":               {nil, ""},
		"full name":              {&api.User{FirstName: "Ada", LastName: "Lovelace", UserName: "ada"}, "Ada Lovelace"},
		"falls back to username": {&api.User{UserName: "ada"}, "ada"},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := GetFullName(tt.user); got != tt.want {
				t.Errorf("GetFullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
