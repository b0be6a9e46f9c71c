package counting

import (
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"counting-bot/internal/metrics"
)

// DiscordAnnouncer sends game feedback through a Discord session. Failures
// are logged and counted, never propagated; the platform boundary is
// unreliable by nature.
type DiscordAnnouncer struct {
	session Messenger
}

func NewDiscordAnnouncer(session Messenger) *DiscordAnnouncer {
	return &DiscordAnnouncer{session: session}
}

func (d *DiscordAnnouncer) Send(channelID, content string, deleteAfter time.Duration, silent bool) {
	data := &discordgo.MessageSend{Content: content}
	if silent {
		data.Flags = discordgo.MessageFlagsSuppressNotifications
	}

	msg, err := d.session.ChannelMessageSendComplex(channelID, data)
	if err != nil {
		slog.Error("Failed to send message", "channel_id", channelID, "error", err)
		metrics.DiscordMessagesSent.WithLabelValues("feedback", "error").Inc()
		return
	}
	metrics.DiscordMessagesSent.WithLabelValues("feedback", "ok").Inc()

	if deleteAfter > 0 {
		messageID := msg.ID
		time.AfterFunc(deleteAfter, func() {
			if err := d.session.ChannelMessageDelete(channelID, messageID); err != nil {
				slog.Warn("Failed to delete feedback message", "channel_id", channelID, "message_id", messageID, "error", err)
			}
		})
	}
}

func (d *DiscordAnnouncer) React(channelID, messageID, emoji string) {
	if err := d.session.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		slog.Warn("Failed to add reaction", "channel_id", channelID, "message_id", messageID, "error", err)
	}
}
