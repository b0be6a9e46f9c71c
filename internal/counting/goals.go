package counting

import (
	"context"
	"log/slog"
	"slices"

	"counting-bot/internal/formatting"
	"counting-bot/internal/metrics"
)

// goalEffects checks the freshly accepted count against the guild's pending
// goals and progress settings. A reached goal is removed from the pending
// set before any notification is queued, so a goal fires at most once even
// if the count later rewinds below it and climbs back. Goal and progress
// notifications are independent and can both fire for the same count.
func (e *Engine) goalEffects(ctx context.Context, state *GuildState, sub Submission, newCount int64) []effect {
	s := state.Settings
	goals := state.Goals

	var effects []effect

	if slices.Contains(goals, newCount) {
		if err := e.store.RemoveGoal(ctx, state.GuildID, newCount); err != nil {
			slog.Error("Failed to remove reached goal", "guild_id", state.GuildID, "goal", newCount, "error", err)
		}
		goals = remaining(goals, newCount)
		metrics.GoalsReached.Inc()

		content, err := formatting.Expand(s.Templates.Goal, map[string]string{
			"user":  sub.AuthorMention,
			"goal":  formatting.Humanize(newCount),
			"count": formatting.Humanize(newCount),
		})
		if err != nil {
			slog.Error("Misconfigured goal message", "guild_id", state.GuildID, "error", err)
			content = formatting.MsgGoalFallback(sub.AuthorMention, newCount)
		}
		effects = append(effects, e.sendEffect(s, s.ChannelID, content, s.DeleteGoalMessage))
	}

	if s.ProgressEnabled && len(goals) > 0 && s.ProgressInterval > 0 && newCount%s.ProgressInterval == 0 {
		if next, ok := nextGoal(goals, newCount); ok {
			content := e.expandOrFallback(state.GuildID, s.Templates.Progress, map[string]string{
				"remaining": formatting.Humanize(next - newCount),
				"goal":      formatting.Humanize(next),
			}, formatting.DefaultProgressMessage)
			effects = append(effects, e.sendEffect(s, s.ChannelID, content, s.DeleteProgressMessage))
		}
	}

	return effects
}

// nextGoal returns the smallest pending goal strictly greater than count.
func nextGoal(goals []int64, count int64) (int64, bool) {
	var best int64
	found := false
	for _, g := range goals {
		if g > count && (!found || g < best) {
			best = g
			found = true
		}
	}
	return best, found
}

func remaining(goals []int64, reached int64) []int64 {
	out := make([]int64, 0, len(goals))
	for _, g := range goals {
		if g != reached {
			out = append(out, g)
		}
	}
	return out
}
