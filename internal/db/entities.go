package db

import (
	"database/sql"
	"time"
)

// Phase is the lifecycle stage of a chat's session.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseVoting     Phase = "voting"
	PhaseFinished   Phase = "finished"
)

// Active reports whether a session in this phase still owns the chat.
func (p Phase) Active() bool {
	return p == PhaseCollecting || p == PhaseVoting
}

type (
	// Session is one playthrough of the game, at most one row per chat.
	// A new game upserts over a finished row, never deletes it.
	Session struct {
		ChatID        int64          `db:"chat_id"`
		Question      string         `db:"question"`
		CorrectAnswer string         `db:"correct_answer"`
		Fact          string         `db:"fact"`
		Phase         Phase          `db:"phase"`
		JoinToken     string         `db:"join_token"`
		PollID        sql.NullString `db:"poll_id"`
		CreatedAt     time.Time      `db:"created_at"`
	}

	// Participant is a joined player; Answer stays NULL until they submit.
	Participant struct {
		ChatID int64          `db:"chat_id"`
		UserID int64          `db:"user_id"`
		Answer sql.NullString `db:"answer"`
	}

	// Option is a poll option with its shuffled index. AuthorUserID is
	// NULL exactly for the correct answer.
	Option struct {
		ChatID       int64         `db:"chat_id"`
		Index        int           `db:"option_index"`
		Text         string        `db:"option_text"`
		AuthorUserID sql.NullInt64 `db:"author_user_id"`
		IsCorrect    bool          `db:"is_correct"`
	}

	// Vote is a user's single recorded poll choice, first vote wins.
	Vote struct {
		ChatID      int64 `db:"chat_id"`
		UserID      int64 `db:"user_id"`
		OptionIndex int   `db:"option_index"`
	}

	// ScoreEntry is the chat-wide cumulative ledger row, it outlives sessions.
	ScoreEntry struct {
		ChatID int64 `db:"chat_id"`
		UserID int64 `db:"user_id"`
		Score  int   `db:"score"`
	}
)

// HasAnswer reports whether the participant has submitted a decoy.
func (p *Participant) HasAnswer() bool {
	return p != nil && p.Answer.Valid
}
