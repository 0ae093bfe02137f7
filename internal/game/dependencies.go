package game

import (
	"context"
	"time"

	"github.com/variantsgg/variants/internal/db"
)

// Question is the generated trivia bundle a session is built from.
type Question struct {
	Question string
	Answer   string
	Fact     string
}

// QuestionGenerator produces a question bundle from a seed fact.
// Failures propagate as Start failures; no session is created.
type QuestionGenerator interface {
	Generate(ctx context.Context, factText string) (*Question, error)
}

// FactSource supplies the random fact a question is generated from.
type FactSource interface {
	Fetch(ctx context.Context) (string, error)
}

// Messenger is the chat platform binding. Every call may fail
// independently; the manager logs and discards those failures, they
// never stall the timer-driven state machine.
type Messenger interface {
	NotifyCollectingStarted(ctx context.Context, chatID int64, question, joinToken string, remaining time.Duration) error
	NotifyCollectingTick(ctx context.Context, chatID int64, remaining time.Duration) error
	NotifyCollectingAborted(ctx context.Context, chatID int64, session *db.Session) error
	// OpenPoll publishes the shuffled options and returns the external
	// poll's correlation id, used to route incoming votes back.
	OpenPoll(ctx context.Context, chatID int64, question string, options []string) (string, error)
	ClosePoll(ctx context.Context, chatID int64, pollID string) error
	NotifyResults(ctx context.Context, chatID int64, results *Results) error
	// NotifyCancelled tears down the round's chat surface after a
	// cancel: the countdown prompt and, when voting had begun, the
	// still-open poll. The session is the one being cancelled.
	NotifyCancelled(ctx context.Context, chatID int64, session *db.Session) error
}
