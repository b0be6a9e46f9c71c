package counting

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Store persists per-guild counting state. Accept and ruin commits must be
// atomic: either the full state transition lands or none of it does.
type Store interface {
	GetGuildState(ctx context.Context, guildID string) (*GuildState, error)
	UpdateSettings(ctx context.Context, guildID string, settings Settings) error
	SetGoals(ctx context.Context, guildID string, goals []int64) error
	RemoveGoal(ctx context.Context, guildID string, goal int64) error

	CommitAccept(ctx context.Context, guildID string, newCount int64, userID string) error
	CommitRuin(ctx context.Context, guildID, userID string, resetUserScore bool) error
	RewindCount(ctx context.Context, guildID string, newCount int64) error
	SetCount(ctx context.Context, guildID string, value int64) error

	Leaderboard(ctx context.Context, guildID string) ([]LeaderboardEntry, error)
	UserScore(ctx context.Context, guildID, userID string) (int64, error)
	ResetLeaderboard(ctx context.Context, guildID string) error
	ResetUserScore(ctx context.Context, guildID, userID string) error
	ReplaceLeaderboard(ctx context.Context, guildID string, scores map[string]int64) error

	CreateSanction(ctx context.Context, record SanctionRecord) error
	ExpiredSanctions(ctx context.Context, now time.Time) ([]SanctionRecord, error)
	DeleteSanction(ctx context.Context, guildID, userID, roleID string) error

	ResetGuild(ctx context.Context, guildID string) error
}

// Messenger defines the Discord API operations the engine performs.
// This interface allows for testing with mocked Discord sessions.
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Announcer sends game feedback to channels, honoring per-guild
// delete-after and silent options.
type Announcer interface {
	Send(channelID, content string, deleteAfter time.Duration, silent bool)
	React(channelID, messageID, emoji string)
}
