package main

import (
	"log/slog"

	"counting-bot/internal/config"

	"github.com/bwmarrin/discordgo"
)

// messageCacheSize bounds the session state cache used to recover the
// content of deleted messages.
const messageCacheSize = 500

func NewDiscordSession(cfg *config.Config) (*discordgo.Session, error) {
	discord, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		slog.Error("Failed to create discord session", "error", err)
		return nil, err
	}

	discord.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	discord.State.MaxMessageCount = messageCacheSize

	return discord, nil
}
