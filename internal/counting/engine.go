package counting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"counting-bot/internal/formatting"
	"counting-bot/internal/metrics"
)

// Rewinds triggered by message deletion only consider the most recent
// accepted values; older deletions are assumed to be unrelated chat.
const deletionRewindWindow = 10

// Engine orchestrates the counting game for all guilds. All state
// transitions for one guild are serialized behind a per-guild mutex;
// different guilds proceed in parallel. Outgoing Discord calls run after
// the lock is released.
type Engine struct {
	store     Store
	announcer Announcer
	session   Messenger
	sanctions *SanctionManager

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(store Store, session Messenger) *Engine {
	return &Engine{
		store:     store,
		announcer: NewDiscordAnnouncer(session),
		session:   session,
		sanctions: NewSanctionManager(store, session),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Sanctions exposes the sanction manager so the host can run its expiry sweep.
func (e *Engine) Sanctions() *SanctionManager {
	return e.sanctions
}

func (e *Engine) lockFor(guildID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[guildID] = lock
	}
	return lock
}

// An effect is an outgoing platform call decided under the guild lock but
// executed after it is released.
type effect func()

func runEffects(effects []effect) {
	for _, fx := range effects {
		fx()
	}
}

// HandleSubmission validates and commits one candidate count. Persistence
// errors abort the operation without any partial state change.
func (e *Engine) HandleSubmission(ctx context.Context, sub Submission) (Decision, error) {
	lock := e.lockFor(sub.GuildID)
	lock.Lock()

	state, err := e.store.GetGuildState(ctx, sub.GuildID)
	if err != nil {
		lock.Unlock()
		return Decision{}, err
	}

	decision := Decide(state, sub)

	var effects []effect
	switch decision.Verdict {
	case VerdictAccept:
		if err := e.store.CommitAccept(ctx, sub.GuildID, decision.NewCount, sub.AuthorID); err != nil {
			lock.Unlock()
			return decision, err
		}
		metrics.CountsAccepted.Inc()
		effects = e.acceptEffects(ctx, state, sub, decision.NewCount)

	case VerdictRuin:
		effects, err = e.ruin(ctx, state, sub.AuthorID, sub.AuthorMention)
		if err != nil {
			lock.Unlock()
			return decision, err
		}
		metrics.CountsRuined.Inc()

	case VerdictReject:
		metrics.CountsRejected.WithLabelValues(string(decision.Reason)).Inc()
		effects = e.rejectEffects(state, sub, decision)
	}

	lock.Unlock()
	runEffects(effects)
	return decision, nil
}

// EditEvent describes an edit to a message in a guild channel.
type EditEvent struct {
	GuildID       string
	ChannelID     string
	MessageID     string
	AuthorID      string
	AuthorMention string
	AuthorIsBot   bool
}

// HandleEdit reacts to an edited message in the counting channel. Edited
// counts are always treated as suspicious: the message is deleted
// (best-effort) and, when ruining is enabled, the edit counts as a ruin by
// the editing author. The new content is never re-validated.
func (e *Engine) HandleEdit(ctx context.Context, edit EditEvent) error {
	lock := e.lockFor(edit.GuildID)
	lock.Lock()

	state, err := e.store.GetGuildState(ctx, edit.GuildID)
	if err != nil {
		lock.Unlock()
		return err
	}

	s := state.Settings
	if !s.Enabled || s.ChannelID == "" || edit.ChannelID != s.ChannelID || edit.AuthorIsBot {
		lock.Unlock()
		return nil
	}

	effects := []effect{func() {
		if err := e.session.ChannelMessageDelete(edit.ChannelID, edit.MessageID); err != nil {
			slog.Warn("Failed to delete edited message", "guild_id", edit.GuildID, "message_id", edit.MessageID, "error", err)
		}
	}}

	if s.AllowRuin {
		ruinEffects, err := e.ruin(ctx, state, edit.AuthorID, edit.AuthorMention)
		if err != nil {
			lock.Unlock()
			return err
		}
		metrics.CountsRuined.Inc()
		effects = append(effects, ruinEffects...)
	} else if s.EditFeedbackEnabled {
		content := e.expandOrFallback(state.GuildID, s.Templates.Edit, map[string]string{
			"user":       edit.AuthorMention,
			"next_count": formatting.Humanize(state.Count + 1),
		}, formatting.DefaultEditMessage)
		effects = append(effects, e.sendEffect(s, s.ChannelID, content, s.DeleteFeedback))
	}

	lock.Unlock()
	runEffects(effects)
	return nil
}

// DeletionEvent describes a deleted message in a guild channel.
type DeletionEvent struct {
	GuildID     string
	ChannelID   string
	Content     string
	AuthorIsBot bool
}

// HandleDeletion repairs the count after a recently accepted value is
// deleted. Recovery is bounded to the last ten accepted values; this is a
// best-effort repair and rapid concurrent deletions can still leave the
// count out of sync with the channel.
func (e *Engine) HandleDeletion(ctx context.Context, del DeletionEvent) error {
	if del.AuthorIsBot {
		return nil
	}

	lock := e.lockFor(del.GuildID)
	lock.Lock()

	state, err := e.store.GetGuildState(ctx, del.GuildID)
	if err != nil {
		lock.Unlock()
		return err
	}

	s := state.Settings
	if !s.Enabled || s.ChannelID == "" || del.ChannelID != s.ChannelID {
		lock.Unlock()
		return nil
	}

	deleted, ok := parseCountLiteral(del.Content)
	if !ok || deleted < state.Count-deletionRewindWindow || deleted > state.Count {
		lock.Unlock()
		return nil
	}

	newCount := max(deleted-1, 0)
	if err := e.store.RewindCount(ctx, del.GuildID, newCount); err != nil {
		lock.Unlock()
		return err
	}
	metrics.CountsRewound.Inc()

	content := formatting.MsgDeletionRewind(deleted, newCount)
	fx := e.sendEffect(s, s.ChannelID, content, s.DeleteFeedback)

	lock.Unlock()
	fx()
	return nil
}

// ruin commits the count reset and returns the sanction and feedback
// effects. Called with the guild lock held.
func (e *Engine) ruin(ctx context.Context, state *GuildState, userID, mention string) ([]effect, error) {
	s := state.Settings
	oldCount := state.Count

	if err := e.store.CommitRuin(ctx, state.GuildID, userID, s.ResetLeaderboardOnRuin); err != nil {
		return nil, err
	}

	var effects []effect
	if s.RuinRoleID != "" {
		guildID := state.GuildID
		effects = append(effects, func() {
			e.sanctions.Apply(ctx, guildID, userID, s)
		})
	}

	content := e.expandOrFallback(state.GuildID, s.Templates.Ruin, map[string]string{
		"user":  mention,
		"count": formatting.Humanize(oldCount),
	}, formatting.DefaultRuinMessage)
	effects = append(effects, e.sendEffect(s, s.ChannelID, content, s.DeleteFeedback))

	return effects, nil
}

// acceptEffects builds the post-accept reactions and notifications. The
// reached goal, if any, is removed from the pending set while the guild
// lock is still held so it can never fire twice.
func (e *Engine) acceptEffects(ctx context.Context, state *GuildState, sub Submission, newCount int64) []effect {
	s := state.Settings
	var effects []effect

	if s.ReactionsEnabled && s.ReactionEmoji != "" {
		effects = append(effects, func() {
			e.announcer.React(sub.ChannelID, sub.MessageID, s.ReactionEmoji)
		})
	}

	effects = append(effects, e.goalEffects(ctx, state, sub, newCount)...)
	return effects
}

// rejectEffects builds the feedback for a rejected submission. Rejects
// never mutate state.
func (e *Engine) rejectEffects(state *GuildState, sub Submission, decision Decision) []effect {
	s := state.Settings

	var content string
	switch decision.Reason {
	case ReasonAccountAge:
		content = formatting.MsgAccountTooYoung(s.MinAccountAgeDays)
	case ReasonSameUser:
		content = e.expandOrFallback(state.GuildID, s.Templates.SameUser, map[string]string{
			"user":       sub.AuthorMention,
			"next_count": formatting.Humanize(decision.Expected),
		}, formatting.DefaultSameUserMessage)
	case ReasonNotANumber, ReasonWrongNumber:
		if !s.WrongNumberFeedback {
			return nil
		}
		content = e.expandOrFallback(state.GuildID, s.Templates.NextNumber, map[string]string{
			"user":       sub.AuthorMention,
			"next_count": formatting.Humanize(decision.Expected),
		}, formatting.DefaultNextNumberMessage)
	default:
		return nil
	}

	return []effect{e.sendEffect(s, s.ChannelID, content, s.DeleteFeedback)}
}

func (e *Engine) sendEffect(s Settings, channelID, content string, deleteFeedback bool) effect {
	deleteAfter := time.Duration(0)
	if deleteFeedback && s.DeleteAfter > 0 {
		deleteAfter = time.Duration(s.DeleteAfter) * time.Second
	}
	silent := s.Silent
	return func() {
		e.announcer.Send(channelID, content, deleteAfter, silent)
	}
}

// expandOrFallback expands a guild template, falling back to the built-in
// default when the template references an unknown placeholder. The detail
// is logged for operators; end users only see the fallback.
func (e *Engine) expandOrFallback(guildID, template string, vars map[string]string, fallback string) string {
	content, err := formatting.Expand(template, vars)
	if err != nil {
		slog.Error("Misconfigured message template", "guild_id", guildID, "error", err)
		content, err = formatting.Expand(fallback, vars)
		if err != nil {
			return fallback
		}
	}
	return content
}
