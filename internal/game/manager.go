package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/variantsgg/variants/internal/clock"
	"github.com/variantsgg/variants/internal/config"
	"github.com/variantsgg/variants/internal/db"
	"github.com/variantsgg/variants/internal/observability"
)

// minAnswers is the fewest submitted decoys a game needs to reach the
// voting phase; below it the session is aborted at collecting expiry.
const minAnswers = 2

// Manager owns every chat's session lifecycle. All state transitions
// for one chat (start, expiry, cancel, join, submit, vote) serialize on
// that chat's lock; chats never contend with each other. There is no
// shared cross-chat state besides the cooldown ledger.
type Manager struct {
	cfg       config.Game
	store     db.Client
	messenger Messenger
	questions QuestionGenerator
	facts     FactSource
	clock     clock.Clock
	scheduler *Scheduler

	randMu sync.Mutex
	rng    *rand.Rand

	mu        sync.Mutex
	chats     map[int64]*chatLock
	cooldowns map[int64]time.Time
}

type chatLock struct {
	sync.Mutex
}

func NewManager(
	cfg config.Game,
	store db.Client,
	messenger Messenger,
	questions QuestionGenerator,
	facts FactSource,
	clk clock.Clock,
	randSource rand.Source,
) *Manager {
	return &Manager{
		cfg:       cfg,
		store:     store,
		messenger: messenger,
		questions: questions,
		facts:     facts,
		clock:     clk,
		scheduler: NewScheduler(clk),
		rng:       rand.New(randSource),
		chats:     make(map[int64]*chatLock),
		cooldowns: make(map[int64]time.Time),
	}
}

// Start implements the lifecycle.Component contract; the manager has no
// startup work.
func (m *Manager) Start(ctx context.Context) error {
	return nil
}

// Stop disarms every live timer.
func (m *Manager) Stop(ctx context.Context) error {
	m.scheduler.DisarmAll()
	return nil
}

func (m *Manager) lockChat(chatID int64) func() {
	m.mu.Lock()
	lock := m.chats[chatID]
	if lock == nil {
		lock = &chatLock{}
		m.chats[chatID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// StartGame begins a fresh collecting session for the chat. It refuses
// while an active session exists or the cooldown has not elapsed. The
// cooldown clock resets the moment the start is accepted, before the
// slow fact and generation calls, so overlapping starts cannot sneak
// through while one is still generating.
func (m *Manager) StartGame(ctx context.Context, chatID int64) error {
	unlock := m.lockChat(chatID)
	defer unlock()

	session, err := m.store.GetSession(ctx, chatID)
	if err != nil {
		return errors.WithMessage(err, "get session")
	}
	if session != nil && session.Phase.Active() {
		return ErrAlreadyRunning
	}

	now := m.clock.Now()
	m.mu.Lock()
	if last, ok := m.cooldowns[chatID]; ok {
		if elapsed := now.Sub(last); elapsed < m.cfg.Cooldown {
			m.mu.Unlock()
			return &CooldownError{Remaining: m.cfg.Cooldown - elapsed}
		}
	}
	m.cooldowns[chatID] = now
	m.mu.Unlock()

	factText, err := m.facts.Fetch(ctx)
	if err != nil {
		return errors.WithMessage(err, "fetch fact")
	}
	question, err := m.questions.Generate(ctx, factText)
	if err != nil {
		return errors.WithMessage(err, "generate question")
	}

	session = &db.Session{
		ChatID:        chatID,
		Question:      question.Question,
		CorrectAnswer: question.Answer,
		Fact:          question.Fact,
		Phase:         db.PhaseCollecting,
		JoinToken:     uuid.New(),
		CreatedAt:     now,
	}
	if err := m.store.UpsertSession(ctx, session); err != nil {
		return errors.WithMessage(err, "upsert session")
	}

	m.notify(chatID, "collecting started",
		m.messenger.NotifyCollectingStarted(ctx, chatID, session.Question, session.JoinToken, m.cfg.CollectingDuration))

	token := session.JoinToken
	m.scheduler.Arm(chatID, m.cfg.CollectingDuration, m.cfg.TickInterval,
		func(remaining time.Duration) {
			m.notify(chatID, "collecting tick", m.messenger.NotifyCollectingTick(context.Background(), chatID, remaining))
		},
		func() {
			m.onCollectingExpired(chatID, token)
		},
	)
	observability.RecordGameStarted()
	return nil
}

// Cancel stops the chat's armed timer and finishes any active session.
// Idempotent; a Start can succeed again immediately after (cooldown
// permitting).
func (m *Manager) Cancel(ctx context.Context, chatID int64) error {
	unlock := m.lockChat(chatID)
	defer unlock()

	m.scheduler.Disarm(chatID)

	session, err := m.store.GetSession(ctx, chatID)
	if err != nil {
		return errors.WithMessage(err, "get session")
	}
	if session == nil || !session.Phase.Active() {
		return nil
	}
	if err := m.store.UpdateSessionPhase(ctx, chatID, db.PhaseFinished); err != nil {
		return errors.WithMessage(err, "finish session")
	}
	m.notify(chatID, "cancelled", m.messenger.NotifyCancelled(ctx, chatID, session))
	observability.RecordGameFinished("cancelled")
	return nil
}

// Join admits a user into the chat's collecting session and returns it
// so callers can show the question. The token from the invite link must
// match the live session, keeping stale links from joining a newer game.
func (m *Manager) Join(ctx context.Context, chatID, userID int64, joinToken string) (*db.Session, error) {
	unlock := m.lockChat(chatID)
	defer unlock()

	session, err := m.store.GetSession(ctx, chatID)
	if err != nil {
		return nil, errors.WithMessage(err, "get session")
	}
	if session == nil || session.Phase != db.PhaseCollecting {
		return nil, ErrGameNotJoinable
	}
	if joinToken != "" && joinToken != session.JoinToken {
		return nil, ErrGameNotJoinable
	}

	participant, err := m.store.GetParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, errors.WithMessage(err, "get participant")
	}
	if participant != nil {
		return session, ErrAlreadyJoined
	}

	count, err := m.store.CountParticipants(ctx, chatID)
	if err != nil {
		return nil, errors.WithMessage(err, "count participants")
	}
	if count >= m.cfg.MaxParticipants {
		return nil, ErrRegistryFull
	}

	added, err := m.store.AddParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, errors.WithMessage(err, "add participant")
	}
	if !added {
		return session, ErrAlreadyJoined
	}
	return session, nil
}

// SubmitAnswer stores the user's decoy in whichever chat they are
// collecting in; a user is active in at most one collecting game
// platform-wide. First submission wins. Returns the chat the answer
// landed in.
func (m *Manager) SubmitAnswer(ctx context.Context, userID int64, text string) (int64, error) {
	participant, err := m.store.GetCollectingParticipant(ctx, userID)
	if err != nil {
		return 0, errors.WithMessage(err, "find collecting participant")
	}
	if participant == nil {
		return 0, ErrNotInGame
	}

	chatID := participant.ChatID
	unlock := m.lockChat(chatID)
	defer unlock()

	if participant.HasAnswer() {
		return chatID, ErrAlreadyAnswered
	}

	updated, err := m.store.SetParticipantAnswer(ctx, userID, truncateAnswer(text, m.cfg.MaxAnswerLength))
	if err != nil {
		return chatID, errors.WithMessage(err, "set answer")
	}
	if !updated {
		return chatID, ErrAlreadyAnswered
	}
	observability.RecordAnswer()
	return chatID, nil
}

// RecordVote ingests a poll answer routed by correlation id. Unknown
// polls, finished sessions, out-of-range indices and repeat votes are
// all dropped silently; they are expected races against phase
// boundaries, not errors.
func (m *Manager) RecordVote(ctx context.Context, pollID string, userID int64, optionIndex int) error {
	if pollID == "" {
		return nil
	}
	session, err := m.store.GetSessionByPollID(ctx, pollID)
	if err != nil {
		return errors.WithMessage(err, "get session by poll")
	}
	if session == nil {
		return nil
	}

	chatID := session.ChatID
	unlock := m.lockChat(chatID)
	defer unlock()

	session, err = m.store.GetSession(ctx, chatID)
	if err != nil {
		return errors.WithMessage(err, "get session")
	}
	if session == nil || session.Phase != db.PhaseVoting {
		return nil
	}

	options, err := m.store.GetOptions(ctx, chatID)
	if err != nil {
		return errors.WithMessage(err, "get options")
	}
	if optionIndex < 0 || optionIndex >= len(options) {
		return nil
	}

	if err := m.store.AddVote(ctx, &db.Vote{ChatID: chatID, UserID: userID, OptionIndex: optionIndex}); err != nil {
		return errors.WithMessage(err, "add vote")
	}
	observability.RecordVote()
	return nil
}

// Leaderboard returns the chat's cumulative top scorers.
func (m *Manager) Leaderboard(ctx context.Context, chatID int64, limit int) ([]db.ScoreEntry, error) {
	return m.store.GetTopScores(ctx, chatID, limit)
}

// Score returns a user's cumulative score in the chat.
func (m *Manager) Score(ctx context.Context, chatID, userID int64) (int, error) {
	return m.store.GetScore(ctx, chatID, userID)
}

// onCollectingExpired and onVotingExpired carry the join token of the
// session they were armed for. A timer can fire and lose its chat lock
// race against a cancel-and-restart; the token check keeps such a stale
// expiry from advancing the replacement session.
func (m *Manager) onCollectingExpired(chatID int64, joinToken string) {
	ctx := context.Background()
	entry := m.logEntry(chatID).WithField("phase", "collecting")

	unlock := m.lockChat(chatID)
	defer unlock()

	session, err := m.store.GetSession(ctx, chatID)
	if err != nil {
		entry.WithError(err).Error("cant load session at expiry")
		return
	}
	if session == nil || session.Phase != db.PhaseCollecting || session.JoinToken != joinToken {
		// Lost the race against a cancel or replacement; nothing to do.
		return
	}

	answered, err := m.store.GetAnsweredParticipants(ctx, chatID)
	if err != nil {
		entry.WithError(err).Error("cant load answered participants")
		return
	}

	if len(answered) < minAnswers {
		if err := m.store.UpdateSessionPhase(ctx, chatID, db.PhaseFinished); err != nil {
			entry.WithError(err).Error("cant finish aborted session")
			return
		}
		m.notify(chatID, "collecting aborted", m.messenger.NotifyCollectingAborted(ctx, chatID, session))
		observability.RecordGameFinished("aborted")
		return
	}

	m.randMu.Lock()
	options := ShuffleOptions(m.rng, session.CorrectAnswer, answered)
	m.randMu.Unlock()

	if err := m.store.ReplaceOptions(ctx, chatID, options); err != nil {
		entry.WithError(err).Error("cant persist options")
		return
	}

	texts := make([]string, len(options))
	for i, option := range options {
		texts[i] = option.Text
	}

	pollID, err := m.messenger.OpenPoll(ctx, chatID, session.Question, texts)
	if err != nil {
		// The poll never opened, so no votes can arrive, but the session
		// still runs its voting phase to completion.
		entry.WithError(err).Error("cant open poll")
		if err := m.store.UpdateSessionPhase(ctx, chatID, db.PhaseVoting); err != nil {
			entry.WithError(err).Error("cant enter voting phase")
			return
		}
	} else if err := m.store.SetSessionVoting(ctx, chatID, pollID); err != nil {
		entry.WithError(err).Error("cant enter voting phase")
		return
	}

	m.scheduler.Arm(chatID, m.cfg.VotingDuration, 0, nil, func() {
		m.onVotingExpired(chatID, joinToken)
	})
}

func (m *Manager) onVotingExpired(chatID int64, joinToken string) {
	ctx := context.Background()
	entry := m.logEntry(chatID).WithField("phase", "voting")

	unlock := m.lockChat(chatID)
	defer unlock()

	session, err := m.store.GetSession(ctx, chatID)
	if err != nil {
		entry.WithError(err).Error("cant load session at expiry")
		return
	}
	if session == nil || session.Phase != db.PhaseVoting || session.JoinToken != joinToken {
		return
	}

	if err := m.store.UpdateSessionPhase(ctx, chatID, db.PhaseFinished); err != nil {
		entry.WithError(err).Error("cant finish session")
		return
	}
	if session.PollID.Valid {
		m.notify(chatID, "close poll", m.messenger.ClosePoll(ctx, chatID, session.PollID.String))
	}

	options, err := m.store.GetOptions(ctx, chatID)
	if err != nil {
		entry.WithError(err).Error("cant load options for scoring")
		return
	}
	votes, err := m.store.GetVotes(ctx, chatID)
	if err != nil {
		entry.WithError(err).Error("cant load votes for scoring")
		return
	}

	deltas := ComputeDeltas(options, votes)
	for userID, delta := range deltas {
		if err := m.store.AddScore(ctx, chatID, userID, delta); err != nil {
			entry.WithError(err).WithField("user_id", userID).Error("cant apply score delta")
		}
	}

	m.notify(chatID, "results", m.messenger.NotifyResults(ctx, chatID, &Results{
		Session: session,
		Options: options,
		Votes:   votes,
		Deltas:  deltas,
	}))
	observability.RecordGameFinished("scored")
}

// notify logs and discards a messenger failure; notifications are
// best-effort and never feed back into the state machine.
func (m *Manager) notify(chatID int64, action string, err error) {
	if err != nil {
		m.logEntry(chatID).WithError(err).Warnf("cant notify: %s", action)
	}
}

func (m *Manager) logEntry(chatID int64) *log.Entry {
	return log.WithField("context", "game").WithField("chat_id", chatID)
}

func truncateAnswer(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}
