package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"counting-bot/internal/counting"
	"counting-bot/internal/formatting"
)

const historyPageSize = 100

// FetchHistory streams a channel's full message history oldest-first.
// Pagination uses the after cursor so pages arrive in chronological order;
// within a page the API returns newest-first, so each page is walked
// backwards. A positive limit bounds the total number of messages scanned.
func FetchHistory(ctx context.Context, s DiscordSession, channelID string, limit int) <-chan counting.HistoryMessage {
	out := make(chan counting.HistoryMessage)

	go func() {
		defer close(out)

		afterID := "0"
		scanned := 0
		for {
			msgs, err := s.ChannelMessages(channelID, historyPageSize, "", afterID, "")
			if err != nil {
				slog.Error("Failed to fetch channel history", "channel_id", channelID, "error", err)
				return
			}
			if len(msgs) == 0 {
				return
			}

			// Newest message first in the page; its ID is the next cursor.
			afterID = msgs[0].ID

			for idx := len(msgs) - 1; idx >= 0; idx-- {
				msg := msgs[idx]
				if msg.Author == nil {
					continue
				}

				hm := counting.HistoryMessage{
					AuthorID:    msg.Author.ID,
					AuthorIsBot: msg.Author.Bot,
					Content:     msg.Content,
				}
				select {
				case out <- hm:
				case <-ctx.Done():
					return
				}

				scanned++
				if limit > 0 && scanned >= limit {
					return
				}
			}
		}
	}()

	return out
}

// buildLeaderboard rebuilds the leaderboard by scanning the counting
// channel's history. The scan can take minutes on large channels, so the
// interaction is deferred and the report arrives as a followup.
func (h *BotHandler) buildLeaderboard(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var merge bool
	for _, opt := range opts {
		if opt.Name == "merge" {
			merge = opt.BoolValue()
		}
	}

	state, err := h.Engine.State(context.Background(), i.GuildID)
	if err != nil {
		h.saveError(s, i, err)
		return
	}
	if state.Settings.ChannelID == "" {
		respond(s, i, formatting.MsgChannelRequired, true)
		return
	}

	if !confirmed(opts) {
		warning := "This will replace the current leaderboard with scores rebuilt from the counting channel's history."
		if merge {
			warning = "This will merge scores rebuilt from the counting channel's history into the current leaderboard."
		}
		respond(s, i, warning+" The scan may take a while on large channels. Re-run with `confirm` set to true to proceed.", true)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		slog.Error("Failed to defer rebuild response", "guild_id", i.GuildID, "error", err)
		return
	}

	go h.runRebuild(s, i, state.Settings.ChannelID, state.Count, merge)
}

func (h *BotHandler) runRebuild(s DiscordSession, i *discordgo.InteractionCreate, channelID string, currentCount int64, merge bool) {
	ctx := context.Background()

	history := FetchHistory(ctx, s, channelID, h.Config.RebuildScanCap)
	report, err := h.Engine.RebuildLeaderboard(ctx, i.GuildID, history, merge)
	if err != nil {
		slog.Error("Leaderboard rebuild failed", "guild_id", i.GuildID, "error", err)
		h.followUp(s, i, formatting.MsgSaveError)
		return
	}

	slog.Info("Leaderboard rebuilt",
		"guild_id", i.GuildID,
		"scanned", report.MessagesScanned,
		"valid", report.ValidCounts,
		"highest", report.HighestCount,
		"merge", merge)

	h.followUp(s, i, h.rebuildSummary(s, i.GuildID, report, currentCount))
}

func (h *BotHandler) rebuildSummary(s DiscordSession, guildID string, report counting.RebuildReport, currentCount int64) string {
	var b strings.Builder
	b.WriteString("**Leaderboard Rebuild Complete**\n")
	fmt.Fprintf(&b, "Messages scanned: %s\n", formatting.Humanize(report.MessagesScanned))
	fmt.Fprintf(&b, "Valid counts: %s\n", formatting.Humanize(report.ValidCounts))
	fmt.Fprintf(&b, "Highest count reached: %s\n", formatting.Humanize(report.HighestCount))
	fmt.Fprintf(&b, "Out of sequence: %s\n", formatting.Humanize(report.OutOfSequence))
	fmt.Fprintf(&b, "Skipped (non-numeric): %s\n", formatting.Humanize(report.NonNumericSkipped))
	fmt.Fprintf(&b, "Skipped (bots): %s\n", formatting.Humanize(report.BotSkipped))
	fmt.Fprintf(&b, "Unique counters: %d\n", report.UniqueCounters)

	if top, err := h.Engine.Top(context.Background(), guildID, 3); err == nil && len(top) > 0 {
		b.WriteString("\nTop counters:\n")
		for pos, entry := range top {
			fmt.Fprintf(&b, "%d. %s — %s\n",
				pos+1, h.resolveName(s, guildID, entry.UserID), formatting.Humanize(entry.Score))
		}
	}

	if report.HighestCount != currentCount {
		fmt.Fprintf(&b,
			"\n⚠️ The highest count found (%s) differs from the stored count (%s). Use /counting setcount if the stored count is wrong.",
			formatting.Humanize(report.HighestCount), formatting.Humanize(currentCount))
	}

	return b.String()
}

func (h *BotHandler) followUp(s DiscordSession, i *discordgo.InteractionCreate, msg string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: msg})
	if err != nil {
		slog.Error("Failed to send rebuild followup", "guild_id", i.GuildID, "error", err)
	}
}
