package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"counting-bot/internal/counting"
)

// mockDiscordSession records interaction responses and lets tests override
// the lookup calls.
type mockDiscordSession struct {
	mu                      sync.Mutex
	lastInteractionResponse *discordgo.InteractionResponse
	followups               []*discordgo.WebhookParams

	interactionRespondFunc    func(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	followupMessageCreateFunc func(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error)
	guildRolesFunc            func(guildID string) ([]*discordgo.Role, error)
	guildMemberFunc           func(guildID, userID string) (*discordgo.Member, error)
	channelMessagesFunc       func(channelID string, limit int, beforeID, afterID, aroundID string) ([]*discordgo.Message, error)
	userFunc                  func(userID string) (*discordgo.User, error)
}

func (m *mockDiscordSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	m.lastInteractionResponse = resp
	m.mu.Unlock()
	if m.interactionRespondFunc != nil {
		return m.interactionRespondFunc(interaction, resp)
	}
	return nil
}

func (m *mockDiscordSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	m.followups = append(m.followups, data)
	m.mu.Unlock()
	if m.followupMessageCreateFunc != nil {
		return m.followupMessageCreateFunc(interaction, wait, data)
	}
	return &discordgo.Message{ID: "followup"}, nil
}

func (m *mockDiscordSession) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	if m.guildRolesFunc != nil {
		return m.guildRolesFunc(guildID)
	}
	return nil, nil
}

func (m *mockDiscordSession) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	if m.guildMemberFunc != nil {
		return m.guildMemberFunc(guildID, userID)
	}
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user-" + userID}}, nil
}

func (m *mockDiscordSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	if m.channelMessagesFunc != nil {
		return m.channelMessagesFunc(channelID, limit, beforeID, afterID, aroundID)
	}
	return nil, nil
}

func (m *mockDiscordSession) User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error) {
	if m.userFunc != nil {
		return m.userFunc(userID)
	}
	return &discordgo.User{ID: userID, Username: "user-" + userID}, nil
}

func (m *mockDiscordSession) responseContent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastInteractionResponse == nil || m.lastInteractionResponse.Data == nil {
		return ""
	}
	return m.lastInteractionResponse.Data.Content
}

func (m *mockDiscordSession) responseEphemeral() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastInteractionResponse == nil || m.lastInteractionResponse.Data == nil {
		return false
	}
	return m.lastInteractionResponse.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

// stubMessenger satisfies counting.Messenger for engine construction; the
// command tests never exercise the gateway side.
type stubMessenger struct{}

func (stubMessenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "stub"}, nil
}

func (stubMessenger) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	return nil
}

func (stubMessenger) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	return nil
}

func (stubMessenger) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (stubMessenger) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	return nil
}

func (stubMessenger) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	return nil
}

// testStore is an in-memory counting.Store backing the handler tests.
type testStore struct {
	mu     sync.Mutex
	guilds map[string]*counting.GuildState
	scores map[string]map[string]int64
}

func newTestStore() *testStore {
	return &testStore{
		guilds: make(map[string]*counting.GuildState),
		scores: make(map[string]map[string]int64),
	}
}

func (s *testStore) guild(guildID string) *counting.GuildState {
	state, ok := s.guilds[guildID]
	if !ok {
		state = &counting.GuildState{GuildID: guildID, Settings: counting.DefaultSettings()}
		s.guilds[guildID] = state
	}
	return state
}

func (s *testStore) GetGuildState(ctx context.Context, guildID string) (*counting.GuildState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.guild(guildID)
	copied := *state
	copied.Goals = append([]int64(nil), state.Goals...)
	return &copied, nil
}

func (s *testStore) UpdateSettings(ctx context.Context, guildID string, settings counting.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guild(guildID).Settings = settings
	return nil
}

func (s *testStore) SetGoals(ctx context.Context, guildID string, goals []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guild(guildID).Goals = append([]int64(nil), goals...)
	return nil
}

func (s *testStore) RemoveGoal(ctx context.Context, guildID string, goal int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.guild(guildID)
	kept := state.Goals[:0]
	for _, g := range state.Goals {
		if g != goal {
			kept = append(kept, g)
		}
	}
	state.Goals = kept
	return nil
}

func (s *testStore) CommitAccept(ctx context.Context, guildID string, newCount int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.guild(guildID)
	state.Count = newCount
	state.LastUserID = userID
	if s.scores[guildID] == nil {
		s.scores[guildID] = make(map[string]int64)
	}
	s.scores[guildID][userID]++
	return nil
}

func (s *testStore) CommitRuin(ctx context.Context, guildID, userID string, resetUserScore bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.guild(guildID)
	state.Count = 0
	state.LastUserID = ""
	if resetUserScore && s.scores[guildID] != nil {
		s.scores[guildID][userID] = 0
	}
	return nil
}

func (s *testStore) RewindCount(ctx context.Context, guildID string, newCount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.guild(guildID)
	state.Count = newCount
	state.LastUserID = ""
	return nil
}

func (s *testStore) SetCount(ctx context.Context, guildID string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.guild(guildID)
	state.Count = value
	state.LastUserID = ""
	return nil
}

func (s *testStore) Leaderboard(ctx context.Context, guildID string) ([]counting.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []counting.LeaderboardEntry
	for userID, score := range s.scores[guildID] {
		if score > 0 {
			entries = append(entries, counting.LeaderboardEntry{UserID: userID, Score: score})
		}
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Score > entries[i].Score {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	return entries, nil
}

func (s *testStore) UserScore(ctx context.Context, guildID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[guildID][userID], nil
}

func (s *testStore) ResetLeaderboard(ctx context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scores, guildID)
	return nil
}

func (s *testStore) ResetUserScore(ctx context.Context, guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scores[guildID] != nil {
		s.scores[guildID][userID] = 0
	}
	return nil
}

func (s *testStore) ReplaceLeaderboard(ctx context.Context, guildID string, scores map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := make(map[string]int64)
	for userID, score := range scores {
		if score > 0 {
			replaced[userID] = score
		}
	}
	s.scores[guildID] = replaced
	return nil
}

func (s *testStore) CreateSanction(ctx context.Context, record counting.SanctionRecord) error {
	return nil
}

func (s *testStore) ExpiredSanctions(ctx context.Context, now time.Time) ([]counting.SanctionRecord, error) {
	return nil, nil
}

func (s *testStore) DeleteSanction(ctx context.Context, guildID, userID, roleID string) error {
	return nil
}

func (s *testStore) ResetGuild(ctx context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guilds, guildID)
	delete(s.scores, guildID)
	return nil
}

func newTestHandler() (*BotHandler, *testStore) {
	store := newTestStore()
	engine := counting.NewEngine(store, stubMessenger{})
	handler := &BotHandler{Engine: engine, BotUserID: "bot-user"}
	return handler, store
}

// commandInteraction builds a subcommand interaction from an admin member.
func commandInteraction(command, subcommand string, opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "guild-1",
			Member: &discordgo.Member{
				User:        &discordgo.User{ID: "admin-1", Username: "admin"},
				Permissions: discordgo.PermissionAdministrator,
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: command,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name:    subcommand,
						Type:    discordgo.ApplicationCommandOptionSubCommand,
						Options: opts,
					},
				},
			},
		},
	}
}

func boolOption(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionBoolean,
		Value: value,
	}
}

func intOption(name string, value int64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}
