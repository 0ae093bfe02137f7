package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/variantsgg/variants/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()

	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newSession(chatID int64) *db.Session {
	return &db.Session{
		ChatID:        chatID,
		Question:      "What is the capital of the UK?",
		CorrectAnswer: "London",
		Fact:          "London has been a capital for nearly a thousand years.",
		Phase:         db.PhaseCollecting,
		JoinToken:     "token-1",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestUpsertSessionClearsPreviousGameRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertSession(ctx, newSession(100)); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	if _, err := client.AddParticipant(ctx, 100, 1); err != nil {
		t.Fatalf("add participant: %v", err)
	}
	if err := client.ReplaceOptions(ctx, 100, []db.Option{{ChatID: 100, Index: 0, Text: "London", IsCorrect: true}}); err != nil {
		t.Fatalf("replace options: %v", err)
	}
	if err := client.AddVote(ctx, &db.Vote{ChatID: 100, UserID: 1, OptionIndex: 0}); err != nil {
		t.Fatalf("add vote: %v", err)
	}

	next := newSession(100)
	next.JoinToken = "token-2"
	if err := client.UpsertSession(ctx, next); err != nil {
		t.Fatalf("upsert second session: %v", err)
	}

	count, err := client.CountParticipants(ctx, 100)
	if err != nil {
		t.Fatalf("count participants: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected participants cleared, got %d", count)
	}
	options, err := client.GetOptions(ctx, 100)
	if err != nil {
		t.Fatalf("get options: %v", err)
	}
	if len(options) != 0 {
		t.Fatalf("expected options cleared, got %d", len(options))
	}
	votes, err := client.GetVotes(ctx, 100)
	if err != nil {
		t.Fatalf("get votes: %v", err)
	}
	if len(votes) != 0 {
		t.Fatalf("expected votes cleared, got %d", len(votes))
	}

	session, err := client.GetSession(ctx, 100)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session == nil || session.JoinToken != "token-2" {
		t.Fatalf("unexpected session: %#v", session)
	}
	if session.PollID.Valid {
		t.Fatalf("expected poll id reset, got %q", session.PollID.String)
	}
}

func TestAddParticipantReportsDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertSession(ctx, newSession(200)); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	added, err := client.AddParticipant(ctx, 200, 7)
	if err != nil {
		t.Fatalf("add participant: %v", err)
	}
	if !added {
		t.Fatal("expected first insert to report added")
	}
	added, err = client.AddParticipant(ctx, 200, 7)
	if err != nil {
		t.Fatalf("add duplicate participant: %v", err)
	}
	if added {
		t.Fatal("expected duplicate insert to report not added")
	}

	count, err := client.CountParticipants(ctx, 200)
	if err != nil {
		t.Fatalf("count participants: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 participant, got %d", count)
	}
}

func TestSetParticipantAnswerFirstWriteWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertSession(ctx, newSession(300)); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	if _, err := client.AddParticipant(ctx, 300, 5); err != nil {
		t.Fatalf("add participant: %v", err)
	}

	updated, err := client.SetParticipantAnswer(ctx, 5, "Paris")
	if err != nil {
		t.Fatalf("set answer: %v", err)
	}
	if !updated {
		t.Fatal("expected first answer to be stored")
	}
	updated, err = client.SetParticipantAnswer(ctx, 5, "Berlin")
	if err != nil {
		t.Fatalf("set second answer: %v", err)
	}
	if updated {
		t.Fatal("expected second answer to be rejected")
	}

	participant, err := client.GetParticipant(ctx, 300, 5)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if !participant.HasAnswer() || participant.Answer.String != "Paris" {
		t.Fatalf("unexpected participant answer: %#v", participant.Answer)
	}
}

func TestSetParticipantAnswerRequiresCollectingSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertSession(ctx, newSession(400)); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	if _, err := client.AddParticipant(ctx, 400, 9); err != nil {
		t.Fatalf("add participant: %v", err)
	}
	if err := client.UpdateSessionPhase(ctx, 400, db.PhaseVoting); err != nil {
		t.Fatalf("update phase: %v", err)
	}

	updated, err := client.SetParticipantAnswer(ctx, 9, "Madrid")
	if err != nil {
		t.Fatalf("set answer: %v", err)
	}
	if updated {
		t.Fatal("expected answer rejected outside collecting phase")
	}
}

func TestAddVoteIgnoresSecondVote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertSession(ctx, newSession(500)); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	if err := client.AddVote(ctx, &db.Vote{ChatID: 500, UserID: 1, OptionIndex: 2}); err != nil {
		t.Fatalf("add vote: %v", err)
	}
	if err := client.AddVote(ctx, &db.Vote{ChatID: 500, UserID: 1, OptionIndex: 3}); err != nil {
		t.Fatalf("add second vote: %v", err)
	}

	votes, err := client.GetVotes(ctx, 500)
	if err != nil {
		t.Fatalf("get votes: %v", err)
	}
	if len(votes) != 1 || votes[0].OptionIndex != 2 {
		t.Fatalf("expected the first vote to be preserved, got %#v", votes)
	}
}

func TestAddScoreAccumulates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.AddScore(ctx, 600, 11, 2); err != nil {
		t.Fatalf("add score: %v", err)
	}
	if err := client.AddScore(ctx, 600, 11, 3); err != nil {
		t.Fatalf("add score increment: %v", err)
	}
	if err := client.AddScore(ctx, 600, 12, 1); err != nil {
		t.Fatalf("add score other user: %v", err)
	}

	score, err := client.GetScore(ctx, 600, 11)
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if score != 5 {
		t.Fatalf("expected score 5, got %d", score)
	}

	top, err := client.GetTopScores(ctx, 600, 10)
	if err != nil {
		t.Fatalf("get top scores: %v", err)
	}
	if len(top) != 2 || top[0].UserID != 11 || top[0].Score != 5 || top[1].UserID != 12 {
		t.Fatalf("unexpected leaderboard: %#v", top)
	}
}

func TestGetSessionByPollID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertSession(ctx, newSession(700)); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	if err := client.SetSessionVoting(ctx, 700, "poll-42"); err != nil {
		t.Fatalf("set session voting: %v", err)
	}

	session, err := client.GetSessionByPollID(ctx, "poll-42")
	if err != nil {
		t.Fatalf("get session by poll id: %v", err)
	}
	if session == nil || session.ChatID != 700 || session.Phase != db.PhaseVoting {
		t.Fatalf("unexpected session: %#v", session)
	}
	if session.PollID != (sql.NullString{String: "poll-42", Valid: true}) {
		t.Fatalf("unexpected poll id: %#v", session.PollID)
	}

	missing, err := client.GetSessionByPollID(ctx, "poll-unknown")
	if err != nil {
		t.Fatalf("get missing session: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil session, got %#v", missing)
	}
}
