package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/variantsgg/variants/internal/bot"
	"github.com/variantsgg/variants/internal/db"
	"github.com/variantsgg/variants/internal/game"
)

const (
	newGameCallback = "VARIANTS_NEW_GAME"

	commandStart = "start"
	commandGame  = "game"
	commandStop  = "stop"
	commandTop   = "top"

	leaderboardSize = 10
)

type gameManager interface {
	StartGame(ctx context.Context, chatID int64) error
	Cancel(ctx context.Context, chatID int64) error
	Join(ctx context.Context, chatID, userID int64, joinToken string) (*db.Session, error)
	SubmitAnswer(ctx context.Context, userID int64, text string) (int64, error)
	RecordVote(ctx context.Context, pollID string, userID int64, optionIndex int) error
	Leaderboard(ctx context.Context, chatID int64, limit int) ([]db.ScoreEntry, error)
}

// Variants routes chat updates into the game manager: group commands
// start and stop rounds, deep-linked private chats collect decoy
// answers, and poll answers become votes.
type Variants struct {
	s       bot.Service
	manager gameManager
}

func NewVariants(s bot.Service, manager gameManager) *Variants {
	return &Variants{
		s:       s,
		manager: manager,
	}
}

func (v *Variants) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	switch {
	case u.PollAnswer != nil:
		return v.handlePollAnswer(ctx, u.PollAnswer, user)
	case u.CallbackQuery != nil:
		return v.handleCallback(ctx, u.CallbackQuery, chat)
	case u.Message != nil:
		return v.handleMessage(ctx, u.Message, chat, user)
	}
	return true, nil
}

func (v *Variants) handlePollAnswer(ctx context.Context, answer *api.PollAnswer, user *api.User) (bool, error) {
	if user == nil || len(answer.OptionIDs) == 0 {
		return true, nil
	}
	if err := v.manager.RecordVote(ctx, answer.PollID, user.ID, answer.OptionIDs[0]); err != nil {
		return false, errors.WithMessage(err, "record vote")
	}
	return false, nil
}

func (v *Variants) handleCallback(ctx context.Context, cb *api.CallbackQuery, chat *api.Chat) (bool, error) {
	if cb.Data != newGameCallback {
		return true, nil
	}
	if chat == nil {
		return false, nil
	}

	notice := ""
	if err := v.manager.StartGame(ctx, chat.ID); err != nil {
		notice = startErrorText(err)
		if notice == "" {
			v.getLogEntry().WithError(err).WithField("chat_id", chat.ID).Error("cant start game")
			notice = "Something went wrong, try again later."
		}
	}
	if _, err := v.s.GetBot().Request(api.NewCallback(cb.ID, notice)); err != nil {
		v.getLogEntry().WithError(err).Warn("cant answer callback")
	}
	return false, nil
}

func (v *Variants) handleMessage(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	if chat == nil || user == nil || user.IsBot {
		return true, nil
	}

	if m.IsCommand() {
		return v.handleCommand(ctx, m, chat, user)
	}

	if chat.IsPrivate() && m.Text != "" {
		return v.handlePrivateAnswer(ctx, m, user)
	}
	return true, nil
}

func (v *Variants) handleCommand(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	isGroup := chat.IsGroup() || chat.IsSuperGroup()

	switch m.Command() {
	case commandGame:
		if !isGroup {
			v.reply(chat.ID, "Add me to a group and run /game there.")
			return false, nil
		}
		if err := v.manager.StartGame(ctx, chat.ID); err != nil {
			text := startErrorText(err)
			if text == "" {
				v.getLogEntry().WithError(err).WithField("chat_id", chat.ID).Error("cant start game")
				text = "Something went wrong, try again later."
			}
			v.reply(chat.ID, text)
		}
		return false, nil

	case commandStop:
		if !isGroup {
			return true, nil
		}
		if err := v.manager.Cancel(ctx, chat.ID); err != nil {
			return false, errors.WithMessage(err, "cancel game")
		}
		v.reply(chat.ID, "Round cancelled.")
		return false, nil

	case commandTop:
		if !isGroup {
			return true, nil
		}
		return false, v.sendLeaderboard(ctx, chat.ID)

	case commandStart:
		if !chat.IsPrivate() {
			return true, nil
		}
		return v.handleDeepLink(ctx, m, user)
	}
	return true, nil
}

// handleDeepLink processes /start payloads of the form
// <chatID>_<joinToken>, minted by the countdown message's join button.
func (v *Variants) handleDeepLink(ctx context.Context, m *api.Message, user *api.User) (bool, error) {
	payload := strings.TrimSpace(m.CommandArguments())
	if payload == "" {
		v.reply(m.Chat.ID, "Hey! Start a round with /game in your group, then tap its join button.")
		return false, nil
	}

	gameChatID, joinToken, ok := parseJoinPayload(payload)
	if !ok {
		v.reply(m.Chat.ID, "That invite link looks broken. Grab a fresh one from the group.")
		return false, nil
	}

	session, err := v.manager.Join(ctx, gameChatID, user.ID, joinToken)
	switch {
	case errors.Is(err, game.ErrGameNotJoinable):
		v.reply(m.Chat.ID, "That round is over. Start a new one with /game in the group.")
	case errors.Is(err, game.ErrRegistryFull):
		v.reply(m.Chat.ID, "The round is full, catch the next one.")
	case errors.Is(err, game.ErrAlreadyJoined):
		if session != nil && !v.hasAnswered(ctx, user.ID) {
			v.reply(m.Chat.ID, "You're already in! Send me your fake answer.")
		} else {
			v.reply(m.Chat.ID, "You're already in, and I have your answer.")
		}
	case err != nil:
		return false, errors.WithMessage(err, "join game")
	default:
		v.getLogEntry().WithFields(log.Fields{
			"chat_id": gameChatID,
			"user":    bot.GetUN(user),
		}).Info("player joined")
		v.reply(m.Chat.ID, fmt.Sprintf("You're in! The question:\n\n%s\n\nNow send me a fake answer that could fool your friends.", session.Question))
	}
	return false, nil
}

func (v *Variants) handlePrivateAnswer(ctx context.Context, m *api.Message, user *api.User) (bool, error) {
	_, err := v.manager.SubmitAnswer(ctx, user.ID, strings.TrimSpace(m.Text))
	switch {
	case errors.Is(err, game.ErrNotInGame):
		v.reply(m.Chat.ID, "You're not in a running round. Join one from its group message first.")
	case errors.Is(err, game.ErrAlreadyAnswered):
		v.reply(m.Chat.ID, "I already have your answer for this round.")
	case err != nil:
		return false, errors.WithMessage(err, "submit answer")
	default:
		v.reply(m.Chat.ID, "Got it! Watch the group for the vote. 🤫")
	}
	return false, nil
}

func (v *Variants) sendLeaderboard(ctx context.Context, chatID int64) error {
	entries, err := v.manager.Leaderboard(ctx, chatID, leaderboardSize)
	if err != nil {
		return errors.WithMessage(err, "load leaderboard")
	}
	if len(entries) == 0 {
		v.reply(chatID, "No scores yet. Play a round with /game!")
		return nil
	}

	text := "🏆 <b>Leaderboard</b>\n\n"
	for i, entry := range entries {
		text += fmt.Sprintf("%d. %s — <b>%d</b>\n", i+1, resolveMention(v.s.GetBot(), chatID, entry.UserID), entry.Score)
	}

	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	if _, err := v.s.GetBot().Send(msg); err != nil {
		return errors.WithMessage(err, "send leaderboard")
	}
	return nil
}

func (v *Variants) reply(chatID int64, text string) {
	if _, err := v.s.GetBot().Send(api.NewMessage(chatID, text)); err != nil {
		v.getLogEntry().WithError(err).WithField("chat_id", chatID).Warn("cant send reply")
	}
}

func (v *Variants) getLogEntry() *log.Entry {
	return log.WithField("context", "variants")
}

// startErrorText maps expected start refusals to user-facing text;
// unexpected errors return "".
func startErrorText(err error) string {
	var cooldown *game.CooldownError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, game.ErrAlreadyRunning):
		return "A round is already running here."
	case errors.As(err, &cooldown):
		return fmt.Sprintf("Too soon! Try again in %d seconds.", int(cooldown.Remaining.Seconds())+1)
	}
	return ""
}

func parseJoinPayload(payload string) (chatID int64, joinToken string, ok bool) {
	idPart, token, found := strings.Cut(payload, "_")
	if !found || token == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, token, true
}

func (v *Variants) hasAnswered(ctx context.Context, userID int64) bool {
	participant, err := v.s.GetDB().GetCollectingParticipant(ctx, userID)
	if err != nil || participant == nil {
		return false
	}
	return participant.HasAnswer()
}
