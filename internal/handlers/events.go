package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"counting-bot/internal/counting"
)

// EventHandler translates gateway message events into engine calls. It
// carries no game logic of its own; everything interesting happens behind
// the engine's per-guild lock.
type EventHandler struct {
	Engine *counting.Engine
}

func NewEventHandler(engine *counting.Engine) *EventHandler {
	return &EventHandler{Engine: engine}
}

func (h *EventHandler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil {
		return
	}

	sub := counting.Submission{
		GuildID:        m.GuildID,
		ChannelID:      m.ChannelID,
		MessageID:      m.ID,
		AuthorID:       m.Author.ID,
		AuthorMention:  m.Author.Mention(),
		AuthorIsBot:    m.Author.Bot,
		Content:        m.Content,
		AccountAgeDays: accountAgeDays(m.Author.ID),
	}

	if _, err := h.Engine.HandleSubmission(context.Background(), sub); err != nil {
		slog.Error("Failed to handle submission", "guild_id", m.GuildID, "error", err)
	}
}

func (h *EventHandler) MessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	// Partial update payloads (embed unfurls etc.) have no author; those
	// are not user edits.
	if m.GuildID == "" || m.Author == nil {
		return
	}

	edit := counting.EditEvent{
		GuildID:       m.GuildID,
		ChannelID:     m.ChannelID,
		MessageID:     m.ID,
		AuthorID:      m.Author.ID,
		AuthorMention: m.Author.Mention(),
		AuthorIsBot:   m.Author.Bot,
	}

	if err := h.Engine.HandleEdit(context.Background(), edit); err != nil {
		slog.Error("Failed to handle edit", "guild_id", m.GuildID, "error", err)
	}
}

func (h *EventHandler) MessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if m.GuildID == "" {
		return
	}

	// Content is only known for messages still in the session state
	// cache; uncached deletions cannot be matched against the count.
	cached := m.BeforeDelete
	if cached == nil || cached.Author == nil {
		return
	}

	del := counting.DeletionEvent{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		Content:     cached.Content,
		AuthorIsBot: cached.Author.Bot,
	}

	if err := h.Engine.HandleDeletion(context.Background(), del); err != nil {
		slog.Error("Failed to handle deletion", "guild_id", m.GuildID, "error", err)
	}
}

// accountAgeDays derives account age from the snowflake creation timestamp.
func accountAgeDays(userID string) int {
	created, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		return 0
	}
	return int(time.Since(created).Hours() / 24)
}
