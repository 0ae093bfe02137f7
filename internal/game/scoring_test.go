package game

import (
	"database/sql"
	"testing"

	"github.com/variantsgg/variants/internal/db"
)

func decoyOption(index int, author int64) db.Option {
	return db.Option{
		Index:        index,
		AuthorUserID: sql.NullInt64{Int64: author, Valid: true},
	}
}

func TestComputeDeltas(t *testing.T) {
	t.Parallel()

	options := []db.Option{
		decoyOption(0, 1),
		{Index: 1, IsCorrect: true},
		decoyOption(2, 2),
	}

	tests := map[string]struct {
		votes []db.Vote
		want  map[int64]int
	}{
		"correct vote earns two": {
			votes: []db.Vote{{UserID: 3, OptionIndex: 1}},
			want:  map[int64]int{3: 2},
		},
		"decoy vote pays the author": {
			votes: []db.Vote{{UserID: 3, OptionIndex: 0}},
			want:  map[int64]int{1: 1},
		},
		"self vote earns nothing": {
			votes: []db.Vote{{UserID: 1, OptionIndex: 0}},
			want:  map[int64]int{},
		},
		"votes accumulate per author": {
			votes: []db.Vote{
				{UserID: 2, OptionIndex: 0},
				{UserID: 3, OptionIndex: 0},
				{UserID: 4, OptionIndex: 0},
			},
			want: map[int64]int{1: 3},
		},
		"mixed round": {
			votes: []db.Vote{
				{UserID: 1, OptionIndex: 2},
				{UserID: 2, OptionIndex: 1},
				{UserID: 3, OptionIndex: 0},
				{UserID: 4, OptionIndex: 1},
			},
			want: map[int64]int{1: 1, 2: 3, 4: 2},
		},
		"unknown option index dropped": {
			votes: []db.Vote{{UserID: 3, OptionIndex: 9}},
			want:  map[int64]int{},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := ComputeDeltas(options, tc.votes)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for userID, delta := range tc.want {
				if got[userID] != delta {
					t.Errorf("user %d: got %d, want %d", userID, got[userID], delta)
				}
			}
		})
	}
}

func TestComputeDeltasOrderIndependent(t *testing.T) {
	t.Parallel()

	options := []db.Option{
		decoyOption(0, 1),
		{Index: 1, IsCorrect: true},
	}
	votes := []db.Vote{
		{UserID: 2, OptionIndex: 0},
		{UserID: 3, OptionIndex: 1},
		{UserID: 4, OptionIndex: 0},
	}
	reversed := []db.Vote{votes[2], votes[1], votes[0]}

	forward := ComputeDeltas(options, votes)
	backward := ComputeDeltas(options, reversed)
	for userID, delta := range forward {
		if backward[userID] != delta {
			t.Fatalf("user %d: %d vs %d", userID, delta, backward[userID])
		}
	}
}

func TestResultsVoterViews(t *testing.T) {
	t.Parallel()

	results := &Results{
		Options: []db.Option{
			decoyOption(0, 1),
			{Index: 1, IsCorrect: true},
		},
		Votes: []db.Vote{
			{UserID: 1, OptionIndex: 0},
			{UserID: 2, OptionIndex: 0},
			{UserID: 3, OptionIndex: 1},
		},
	}

	correct := results.CorrectVoters()
	if len(correct) != 1 || correct[0] != 3 {
		t.Errorf("correct voters: %v", correct)
	}

	decoy := results.DecoyVoters(0)
	if len(decoy) != 1 || decoy[0] != 2 {
		t.Errorf("decoy voters: %v", decoy)
	}
}
