package game

import (
	"database/sql"
	"math/rand"

	"github.com/variantsgg/variants/internal/db"
)

// ShuffleOptions builds the poll option set: every submitted decoy plus
// the correct answer, uniformly permuted by rng and assigned dense
// indices. Exactly one resulting option is marked correct. Pure given
// the rng, so tests can seed it and assert exact permutations.
func ShuffleOptions(rng *rand.Rand, correctAnswer string, answered []db.Participant) []db.Option {
	options := make([]db.Option, 0, len(answered)+1)
	for _, participant := range answered {
		options = append(options, db.Option{
			ChatID:       participant.ChatID,
			Text:         participant.Answer.String,
			AuthorUserID: sql.NullInt64{Int64: participant.UserID, Valid: true},
		})
	}
	var chatID int64
	if len(answered) > 0 {
		chatID = answered[0].ChatID
	}
	options = append(options, db.Option{
		ChatID:    chatID,
		Text:      correctAnswer,
		IsCorrect: true,
	})

	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	for i := range options {
		options[i].Index = i
	}
	return options
}
