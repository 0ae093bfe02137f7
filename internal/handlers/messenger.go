package handlers

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/variantsgg/variants/internal/bot"
	"github.com/variantsgg/variants/internal/db"
	"github.com/variantsgg/variants/internal/game"
)

// maxPollQuestionLength is Telegram's sendPoll question limit.
const maxPollQuestionLength = 300

// TelegramMessenger renders game phases into chat messages. It keeps
// the countdown and poll message ids per chat so ticks edit in place
// and the poll can be stopped when voting ends.
type TelegramMessenger struct {
	s           bot.Service
	botUsername string

	mu            sync.Mutex
	countdownMsgs map[int64]*countdownRef
	pollMsgs      map[int64]int
}

// countdownRef remembers what was sent, so ticks re-render the whole
// message instead of losing the question and the join button on edit.
type countdownRef struct {
	messageID int
	body      string
	markup    api.InlineKeyboardMarkup
}

func NewTelegramMessenger(s bot.Service, botUsername string) *TelegramMessenger {
	return &TelegramMessenger{
		s:             s,
		botUsername:   botUsername,
		countdownMsgs: make(map[int64]*countdownRef),
		pollMsgs:      make(map[int64]int),
	}
}

func (t *TelegramMessenger) NotifyCollectingStarted(ctx context.Context, chatID int64, question, joinToken string, remaining time.Duration) error {
	t.dropCountdown(ctx, chatID)

	body := tool.ExecTemplate(`🎲 <b>New round!</b>

{{ .question }}

Tap the button, then send me your most convincing fake answer in private. The juicier the bluff, the more votes it baits.`, map[string]any{
		"question": html.EscapeString(question),
	})
	markup := api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonURL("🙋 I'm in", t.joinLink(chatID, joinToken)),
		),
	)

	msg := api.NewMessage(chatID, body+countdownLine(remaining))
	msg.ParseMode = api.ModeHTML
	msg.ReplyMarkup = markup

	sent, err := t.s.GetBot().Send(msg)
	if err != nil {
		return errors.WithMessage(err, "send countdown")
	}

	t.mu.Lock()
	t.countdownMsgs[chatID] = &countdownRef{messageID: sent.MessageID, body: body, markup: markup}
	t.mu.Unlock()
	return nil
}

func (t *TelegramMessenger) NotifyCollectingTick(ctx context.Context, chatID int64, remaining time.Duration) error {
	t.mu.Lock()
	ref, ok := t.countdownMsgs[chatID]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	edit := api.NewEditMessageTextAndMarkup(chatID, ref.messageID, ref.body+countdownLine(remaining), ref.markup)
	edit.ParseMode = api.ModeHTML
	if _, err := t.s.GetBot().Send(edit); err != nil {
		return errors.WithMessage(err, "edit countdown")
	}
	return nil
}

func countdownLine(remaining time.Duration) string {
	return fmt.Sprintf("\n\n⏳ %ds left to join and answer", int(remaining.Seconds()))
}

func (t *TelegramMessenger) NotifyCollectingAborted(ctx context.Context, chatID int64, session *db.Session) error {
	t.dropCountdown(ctx, chatID)

	text := tool.ExecTemplate(`😴 Not enough answers, round cancelled.

The answer was: <b>{{ .answer }}</b>
<i>{{ .fact }}</i>`, map[string]any{
		"answer": html.EscapeString(session.CorrectAnswer),
		"fact":   html.EscapeString(session.Fact),
	})

	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData("🔁 Play again", newGameCallback),
		),
	)
	if _, err := t.s.GetBot().Send(msg); err != nil {
		return errors.WithMessage(err, "send aborted notice")
	}
	return nil
}

func (t *TelegramMessenger) OpenPoll(ctx context.Context, chatID int64, question string, options []string) (string, error) {
	t.dropCountdown(ctx, chatID)

	pollOptions := make([]api.InputPollOption, 0, len(options))
	for _, option := range options {
		pollOptions = append(pollOptions, api.InputPollOption{Text: option})
	}

	poll := api.SendPollConfig{
		BaseChat: api.BaseChat{
			ChatConfig: api.ChatConfig{ChatID: chatID},
		},
		Question:    truncate(question, maxPollQuestionLength),
		Options:     pollOptions,
		IsAnonymous: false,
	}

	sent, err := t.s.GetBot().Send(poll)
	if err != nil {
		return "", errors.WithMessage(err, "send poll")
	}
	if sent.Poll == nil {
		return "", errors.New("sent message carries no poll")
	}

	t.mu.Lock()
	t.pollMsgs[chatID] = sent.MessageID
	t.mu.Unlock()
	return sent.Poll.ID, nil
}

func (t *TelegramMessenger) ClosePoll(ctx context.Context, chatID int64, pollID string) error {
	t.mu.Lock()
	messageID, ok := t.pollMsgs[chatID]
	delete(t.pollMsgs, chatID)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	if _, err := t.s.GetBot().Request(api.NewStopPoll(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "stop poll")
	}
	return nil
}

func (t *TelegramMessenger) NotifyCancelled(ctx context.Context, chatID int64, session *db.Session) error {
	t.dropCountdown(ctx, chatID)
	if session.PollID.Valid {
		return t.ClosePoll(ctx, chatID, session.PollID.String)
	}
	return nil
}

func (t *TelegramMessenger) NotifyResults(ctx context.Context, chatID int64, results *game.Results) error {
	text := tool.ExecTemplate(`🏁 <b>Round over!</b>

The real answer: <b>{{ .answer }}</b>
<i>{{ .fact }}</i>
{{ .breakdown }}
{{ .scores }}`, map[string]any{
		"answer":    html.EscapeString(results.Session.CorrectAnswer),
		"fact":      html.EscapeString(results.Session.Fact),
		"breakdown": t.renderBreakdown(chatID, results),
		"scores":    t.renderDeltas(chatID, results.Deltas),
	})

	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData("🔁 Play again", newGameCallback),
		),
	)
	if _, err := t.s.GetBot().Send(msg); err != nil {
		return errors.WithMessage(err, "send results")
	}
	return nil
}

// renderBreakdown lists who guessed right and which decoys fooled whom.
func (t *TelegramMessenger) renderBreakdown(chatID int64, results *game.Results) string {
	var out string

	if guessers := results.CorrectVoters(); len(guessers) > 0 {
		names := make([]string, 0, len(guessers))
		for _, userID := range guessers {
			names = append(names, resolveMention(t.s.GetBot(), chatID, userID))
		}
		out += "\n🎯 Guessed it: " + strings.Join(names, ", ")
	}

	for _, option := range results.Options {
		if option.IsCorrect || !option.AuthorUserID.Valid {
			continue
		}
		fooled := results.DecoyVoters(option.Index)
		if len(fooled) == 0 {
			continue
		}
		names := make([]string, 0, len(fooled))
		for _, userID := range fooled {
			names = append(names, resolveMention(t.s.GetBot(), chatID, userID))
		}
		out += fmt.Sprintf("\n🎭 «%s» by %s fooled %s",
			html.EscapeString(option.Text),
			resolveMention(t.s.GetBot(), chatID, option.AuthorUserID.Int64),
			strings.Join(names, ", "))
	}
	return out
}

func (t *TelegramMessenger) renderDeltas(chatID int64, deltas map[int64]int) string {
	if len(deltas) == 0 {
		return "Nobody scored this round. Brutal."
	}

	type line struct {
		userID int64
		delta  int
	}
	lines := make([]line, 0, len(deltas))
	for userID, delta := range deltas {
		lines = append(lines, line{userID: userID, delta: delta})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].delta != lines[j].delta {
			return lines[i].delta > lines[j].delta
		}
		return lines[i].userID < lines[j].userID
	})

	out := "Points this round:\n"
	for _, l := range lines {
		out += fmt.Sprintf("• %s  <b>+%d</b>\n", resolveMention(t.s.GetBot(), chatID, l.userID), l.delta)
	}
	return out
}

// resolveMention resolves a display name through getChatMember; votes
// can come from chat members that never joined the game, so names are
// not in the local store.
func resolveMention(b *api.BotAPI, chatID, userID int64) string {
	name := "player"
	member, err := b.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil {
		log.WithField("context", "messenger").WithError(err).Warn("cant resolve chat member")
	} else if full := bot.GetFullName(member.User); full != "" {
		name = full
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}

func (t *TelegramMessenger) joinLink(chatID int64, joinToken string) string {
	return fmt.Sprintf("https://t.me/%s?start=%d_%s", t.botUsername, chatID, joinToken)
}

func (t *TelegramMessenger) dropCountdown(ctx context.Context, chatID int64) {
	t.mu.Lock()
	ref, ok := t.countdownMsgs[chatID]
	delete(t.countdownMsgs, chatID)
	t.mu.Unlock()
	if !ok {
		return
	}
	if err := bot.DeleteChatMessage(ctx, t.s.GetBot(), chatID, ref.messageID); err != nil {
		log.WithField("context", "messenger").WithError(err).Warn("cant delete countdown")
	}
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
