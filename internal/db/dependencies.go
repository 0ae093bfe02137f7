package db

import "context"

// Client is the durable store contract for sessions, their per-session
// satellite rows and the chat-wide score ledger.
type Client interface {
	Close() error

	// UpsertSession replaces the chat's session row and clears the
	// previous session's participants, options and votes in one
	// transaction.
	UpsertSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, chatID int64) (*Session, error)
	GetSessionByPollID(ctx context.Context, pollID string) (*Session, error)
	UpdateSessionPhase(ctx context.Context, chatID int64, phase Phase) error
	// SetSessionVoting moves the session to the voting phase and records
	// the external poll's correlation id.
	SetSessionVoting(ctx context.Context, chatID int64, pollID string) error

	// AddParticipant inserts a participant, reporting false if the
	// (chat, user) pair already exists.
	AddParticipant(ctx context.Context, chatID, userID int64) (bool, error)
	GetParticipant(ctx context.Context, chatID, userID int64) (*Participant, error)
	// GetCollectingParticipant finds the user's participant row in
	// whichever chat currently runs a collecting session.
	GetCollectingParticipant(ctx context.Context, userID int64) (*Participant, error)
	CountParticipants(ctx context.Context, chatID int64) (int, error)
	GetAnsweredParticipants(ctx context.Context, chatID int64) ([]Participant, error)
	// SetParticipantAnswer stores the user's decoy, first write wins.
	// Reports false when the answer was already set or no collecting
	// session admits the user.
	SetParticipantAnswer(ctx context.Context, userID int64, answer string) (bool, error)

	ReplaceOptions(ctx context.Context, chatID int64, options []Option) error
	GetOptions(ctx context.Context, chatID int64) ([]Option, error)

	// AddVote records the user's first vote; later votes are ignored.
	AddVote(ctx context.Context, vote *Vote) error
	GetVotes(ctx context.Context, chatID int64) ([]Vote, error)

	// AddScore applies an additive delta via an atomic upsert.
	AddScore(ctx context.Context, chatID, userID int64, delta int) error
	GetScore(ctx context.Context, chatID, userID int64) (int, error)
	GetTopScores(ctx context.Context, chatID int64, limit int) ([]ScoreEntry, error)
}
