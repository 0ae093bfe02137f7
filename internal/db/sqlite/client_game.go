package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamwavecut/tool"

	"github.com/variantsgg/variants/internal/db"
)

const sessionColumns = "chat_id, question, correct_answer, fact, phase, join_token, poll_id, created_at"

func (c *sqliteClient) UpsertSession(ctx context.Context, session *db.Session) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"participants", "options", "votes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE chat_id = ?", session.ChatID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO sessions (chat_id, question, correct_answer, fact, phase, join_token, poll_id, created_at)
		VALUES (:chat_id, :question, :correct_answer, :fact, :phase, :join_token, NULL, :created_at)
		ON CONFLICT(chat_id) DO UPDATE SET
			question = excluded.question,
			correct_answer = excluded.correct_answer,
			fact = excluded.fact,
			phase = excluded.phase,
			join_token = excluded.join_token,
			poll_id = NULL,
			created_at = excluded.created_at
	`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *sqliteClient) GetSession(ctx context.Context, chatID int64) (*db.Session, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var session db.Session
	err := c.db.GetContext(ctx, &session, "SELECT "+sessionColumns+" FROM sessions WHERE chat_id = ?", chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (c *sqliteClient) GetSessionByPollID(ctx context.Context, pollID string) (*db.Session, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var session db.Session
	err := c.db.GetContext(ctx, &session, "SELECT "+sessionColumns+" FROM sessions WHERE poll_id = ?", pollID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (c *sqliteClient) UpdateSessionPhase(ctx context.Context, chatID int64, phase db.Phase) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return tool.Err(c.db.ExecContext(ctx, "UPDATE sessions SET phase = ? WHERE chat_id = ?", phase, chatID))
}

func (c *sqliteClient) SetSessionVoting(ctx context.Context, chatID int64, pollID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return tool.Err(c.db.ExecContext(ctx,
		"UPDATE sessions SET phase = ?, poll_id = ? WHERE chat_id = ?",
		db.PhaseVoting, pollID, chatID,
	))
}

func (c *sqliteClient) AddParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, "INSERT OR IGNORE INTO participants (chat_id, user_id) VALUES (?, ?)", chatID, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (c *sqliteClient) GetParticipant(ctx context.Context, chatID, userID int64) (*db.Participant, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var participant db.Participant
	err := c.db.GetContext(ctx, &participant,
		"SELECT chat_id, user_id, answer FROM participants WHERE chat_id = ? AND user_id = ?",
		chatID, userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

func (c *sqliteClient) GetCollectingParticipant(ctx context.Context, userID int64) (*db.Participant, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var participant db.Participant
	err := c.db.GetContext(ctx, &participant, `
		SELECT p.chat_id, p.user_id, p.answer FROM participants p
		JOIN sessions s ON p.chat_id = s.chat_id
		WHERE p.user_id = ? AND s.phase = ?
	`, userID, db.PhaseCollecting)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

func (c *sqliteClient) CountParticipants(ctx context.Context, chatID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM participants WHERE chat_id = ?", chatID)
	return count, err
}

func (c *sqliteClient) GetAnsweredParticipants(ctx context.Context, chatID int64) ([]db.Participant, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var participants []db.Participant
	err := c.db.SelectContext(ctx, &participants,
		"SELECT chat_id, user_id, answer FROM participants WHERE chat_id = ? AND answer IS NOT NULL ORDER BY user_id",
		chatID,
	)
	return participants, err
}

func (c *sqliteClient) SetParticipantAnswer(ctx context.Context, userID int64, answer string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE participants SET answer = ?
		WHERE user_id = ? AND answer IS NULL
		AND chat_id IN (SELECT chat_id FROM sessions WHERE phase = ?)
	`, answer, userID, db.PhaseCollecting)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (c *sqliteClient) ReplaceOptions(ctx context.Context, chatID int64, options []db.Option) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM options WHERE chat_id = ?", chatID); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO options (chat_id, option_index, option_text, author_user_id, is_correct) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, option := range options {
		if _, err := stmt.ExecContext(ctx, chatID, option.Index, option.Text, option.AuthorUserID, option.IsCorrect); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *sqliteClient) GetOptions(ctx context.Context, chatID int64) ([]db.Option, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var options []db.Option
	err := c.db.SelectContext(ctx, &options,
		"SELECT chat_id, option_index, option_text, author_user_id, is_correct FROM options WHERE chat_id = ? ORDER BY option_index",
		chatID,
	)
	return options, err
}

func (c *sqliteClient) AddVote(ctx context.Context, vote *db.Vote) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return tool.Err(c.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO votes (chat_id, user_id, option_index) VALUES (?, ?, ?)",
		vote.ChatID, vote.UserID, vote.OptionIndex,
	))
}

func (c *sqliteClient) GetVotes(ctx context.Context, chatID int64) ([]db.Vote, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var votes []db.Vote
	err := c.db.SelectContext(ctx, &votes,
		"SELECT chat_id, user_id, option_index FROM votes WHERE chat_id = ? ORDER BY user_id",
		chatID,
	)
	return votes, err
}

func (c *sqliteClient) AddScore(ctx context.Context, chatID, userID int64, delta int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return tool.Err(c.db.ExecContext(ctx, `
		INSERT INTO scores (chat_id, user_id, score) VALUES (?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET score = score + excluded.score
	`, chatID, userID, delta))
}

func (c *sqliteClient) GetScore(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var score int
	err := c.db.GetContext(ctx, &score, "SELECT score FROM scores WHERE chat_id = ? AND user_id = ?", chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return score, err
}

func (c *sqliteClient) GetTopScores(ctx context.Context, chatID int64, limit int) ([]db.ScoreEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var entries []db.ScoreEntry
	err := c.db.SelectContext(ctx, &entries,
		"SELECT chat_id, user_id, score FROM scores WHERE chat_id = ? ORDER BY score DESC, user_id LIMIT ?",
		chatID, limit,
	)
	return entries, err
}
