package game

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/variantsgg/variants/internal/db"
)

func answeredParticipant(chatID, userID int64, answer string) db.Participant {
	return db.Participant{
		ChatID: chatID,
		UserID: userID,
		Answer: sql.NullString{String: answer, Valid: true},
	}
}

func TestShuffleOptionsIncludesEveryDecoyAndTheAnswer(t *testing.T) {
	t.Parallel()

	answered := []db.Participant{
		answeredParticipant(10, 1, "paris"),
		answeredParticipant(10, 2, "london"),
		answeredParticipant(10, 3, "madrid"),
	}

	options := ShuffleOptions(rand.New(rand.NewSource(42)), "vienna", answered)
	if len(options) != 4 {
		t.Fatalf("got %d options", len(options))
	}

	correct := 0
	texts := make(map[string]bool)
	for i, option := range options {
		if option.Index != i {
			t.Errorf("option %d has index %d", i, option.Index)
		}
		if option.ChatID != 10 {
			t.Errorf("option %d has chat %d", i, option.ChatID)
		}
		texts[option.Text] = true
		if option.IsCorrect {
			correct++
			if option.Text != "vienna" {
				t.Errorf("correct option text %q", option.Text)
			}
			if option.AuthorUserID.Valid {
				t.Error("correct option must not carry an author")
			}
		} else if !option.AuthorUserID.Valid {
			t.Errorf("decoy %q has no author", option.Text)
		}
	}
	if correct != 1 {
		t.Fatalf("%d options marked correct", correct)
	}
	for _, want := range []string{"paris", "london", "madrid", "vienna"} {
		if !texts[want] {
			t.Errorf("missing option %q", want)
		}
	}
}

func TestShuffleOptionsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	answered := []db.Participant{
		answeredParticipant(10, 1, "a"),
		answeredParticipant(10, 2, "b"),
		answeredParticipant(10, 3, "c"),
	}

	first := ShuffleOptions(rand.New(rand.NewSource(7)), "x", answered)
	second := ShuffleOptions(rand.New(rand.NewSource(7)), "x", answered)
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Fatalf("permutation differs at %d: %q vs %q", i, first[i].Text, second[i].Text)
		}
	}
}

func TestShuffleOptionsPermutes(t *testing.T) {
	t.Parallel()

	answered := make([]db.Participant, 0, 8)
	for i := int64(1); i <= 8; i++ {
		answered = append(answered, answeredParticipant(10, i, string(rune('a'+i))))
	}

	// With nine options, at least one of a handful of seeds must move
	// the correct answer off the tail position it is appended at.
	moved := false
	for seed := int64(0); seed < 5; seed++ {
		options := ShuffleOptions(rand.New(rand.NewSource(seed)), "correct", answered)
		if !options[len(options)-1].IsCorrect {
			moved = true
			break
		}
	}
	if !moved {
		t.Fatal("correct answer never left the tail position")
	}
}
