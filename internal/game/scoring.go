package game

import "github.com/variantsgg/variants/internal/db"

const (
	correctVoteScore = 2
	decoyVoteScore   = 1
)

// Results is everything the messenger needs to reveal a finished game.
type Results struct {
	Session *db.Session
	Options []db.Option
	Votes   []db.Vote
	Deltas  map[int64]int
}

// ComputeDeltas reduces a session's options and votes into per-user
// score deltas: +2 for voting the correct option, +1 to a decoy's
// author for every vote from someone else. A vote for your own decoy
// earns nothing on either side. The reduction is commutative, so vote
// order never changes the outcome.
func ComputeDeltas(options []db.Option, votes []db.Vote) map[int64]int {
	byIndex := make(map[int]db.Option, len(options))
	for _, option := range options {
		byIndex[option.Index] = option
	}

	deltas := make(map[int64]int)
	for _, vote := range votes {
		option, ok := byIndex[vote.OptionIndex]
		if !ok {
			continue
		}
		if option.IsCorrect {
			deltas[vote.UserID] += correctVoteScore
			continue
		}
		if option.AuthorUserID.Valid && option.AuthorUserID.Int64 != vote.UserID {
			deltas[option.AuthorUserID.Int64] += decoyVoteScore
		}
	}
	return deltas
}

// CorrectVoters lists the users who picked the correct option.
func (r *Results) CorrectVoters() []int64 {
	var correctIndex = -1
	for _, option := range r.Options {
		if option.IsCorrect {
			correctIndex = option.Index
			break
		}
	}

	var voters []int64
	for _, vote := range r.Votes {
		if vote.OptionIndex == correctIndex {
			voters = append(voters, vote.UserID)
		}
	}
	return voters
}

// DecoyVoters lists the users who picked the given decoy option,
// excluding its author's self-vote.
func (r *Results) DecoyVoters(optionIndex int) []int64 {
	var author int64 = -1
	for _, option := range r.Options {
		if option.Index == optionIndex && option.AuthorUserID.Valid {
			author = option.AuthorUserID.Int64
			break
		}
	}

	var voters []int64
	for _, vote := range r.Votes {
		if vote.OptionIndex == optionIndex && vote.UserID != author {
			voters = append(voters, vote.UserID)
		}
	}
	return voters
}
