package game

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyRunning is returned by Start while the chat has an
	// active (collecting or voting) session. Callers must Cancel first.
	ErrAlreadyRunning = errors.New("a game is already running in this chat")

	// ErrGameNotJoinable is returned by Join when there is no collecting
	// session for the chat, or the join token belongs to a superseded one.
	ErrGameNotJoinable = errors.New("game is not joinable")

	// ErrRegistryFull is returned by Join when the admission cap is reached.
	ErrRegistryFull = errors.New("participant limit reached")

	// ErrAlreadyJoined is returned by Join for a repeated (chat, user) pair.
	ErrAlreadyJoined = errors.New("user already joined this game")

	// ErrAlreadyAnswered is returned by SubmitAnswer after the first
	// successful submission; the stored answer is never overwritten.
	ErrAlreadyAnswered = errors.New("answer already submitted")

	// ErrNotInGame is returned by SubmitAnswer when the user has no
	// participant row in any collecting session.
	ErrNotInGame = errors.New("user is not in a collecting game")
)

// CooldownError rejects a Start attempted before the per-chat cooldown
// interval has elapsed since the previous accepted Start.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining.Round(time.Second))
}
