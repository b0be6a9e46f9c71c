package counting

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// memStore is an in-memory Store used across the package tests. Error
// fields inject failures on specific operations.
type memStore struct {
	mu        sync.Mutex
	guilds    map[string]*GuildState
	scores    map[string]map[string]int64
	sanctions []SanctionRecord

	errGetGuildState    error
	errCommitAccept     error
	errCommitRuin       error
	errRewindCount      error
	errCreateSanction   error
	errExpiredSanctions error
}

func newMemStore() *memStore {
	return &memStore{
		guilds: make(map[string]*GuildState),
		scores: make(map[string]map[string]int64),
	}
}

// seedGuild installs a guild state for a test scenario.
func (m *memStore) seedGuild(state *GuildState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[state.GuildID] = state
}

func (m *memStore) guild(guildID string) *GuildState {
	state, ok := m.guilds[guildID]
	if !ok {
		state = &GuildState{GuildID: guildID, Settings: DefaultSettings()}
		m.guilds[guildID] = state
	}
	return state
}

func (m *memStore) GetGuildState(ctx context.Context, guildID string) (*GuildState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errGetGuildState != nil {
		return nil, m.errGetGuildState
	}

	state := m.guild(guildID)
	copied := *state
	copied.Goals = append([]int64(nil), state.Goals...)
	return &copied, nil
}

func (m *memStore) UpdateSettings(ctx context.Context, guildID string, settings Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guild(guildID).Settings = settings
	return nil
}

func (m *memStore) SetGoals(ctx context.Context, guildID string, goals []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guild(guildID).Goals = append([]int64(nil), goals...)
	return nil
}

func (m *memStore) RemoveGoal(ctx context.Context, guildID string, goal int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.guild(guildID)
	kept := state.Goals[:0]
	for _, g := range state.Goals {
		if g != goal {
			kept = append(kept, g)
		}
	}
	state.Goals = kept
	return nil
}

func (m *memStore) CommitAccept(ctx context.Context, guildID string, newCount int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCommitAccept != nil {
		return m.errCommitAccept
	}

	state := m.guild(guildID)
	state.Count = newCount
	state.LastUserID = userID

	if m.scores[guildID] == nil {
		m.scores[guildID] = make(map[string]int64)
	}
	m.scores[guildID][userID]++
	return nil
}

func (m *memStore) CommitRuin(ctx context.Context, guildID, userID string, resetUserScore bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCommitRuin != nil {
		return m.errCommitRuin
	}

	state := m.guild(guildID)
	state.Count = 0
	state.LastUserID = ""

	if resetUserScore && m.scores[guildID] != nil {
		m.scores[guildID][userID] = 0
	}
	return nil
}

func (m *memStore) RewindCount(ctx context.Context, guildID string, newCount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errRewindCount != nil {
		return m.errRewindCount
	}

	state := m.guild(guildID)
	state.Count = newCount
	state.LastUserID = ""
	return nil
}

func (m *memStore) SetCount(ctx context.Context, guildID string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.guild(guildID)
	state.Count = value
	state.LastUserID = ""
	return nil
}

func (m *memStore) Leaderboard(ctx context.Context, guildID string) ([]LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []LeaderboardEntry
	for userID, score := range m.scores[guildID] {
		if score > 0 {
			entries = append(entries, LeaderboardEntry{UserID: userID, Score: score})
		}
	}
	// Highest score first, matching the SQL ordering.
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Score > entries[i].Score {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	return entries, nil
}

func (m *memStore) UserScore(ctx context.Context, guildID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[guildID][userID], nil
}

func (m *memStore) ResetLeaderboard(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores, guildID)
	return nil
}

func (m *memStore) ResetUserScore(ctx context.Context, guildID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scores[guildID] != nil {
		m.scores[guildID][userID] = 0
	}
	return nil
}

func (m *memStore) ReplaceLeaderboard(ctx context.Context, guildID string, scores map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := make(map[string]int64)
	for userID, score := range scores {
		if score > 0 {
			replaced[userID] = score
		}
	}
	m.scores[guildID] = replaced
	return nil
}

func (m *memStore) CreateSanction(ctx context.Context, record SanctionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCreateSanction != nil {
		return m.errCreateSanction
	}
	m.sanctions = append(m.sanctions, record)
	return nil
}

func (m *memStore) ExpiredSanctions(ctx context.Context, now time.Time) ([]SanctionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errExpiredSanctions != nil {
		return nil, m.errExpiredSanctions
	}

	var expired []SanctionRecord
	for _, record := range m.sanctions {
		if !record.ExpiresAt.After(now) {
			expired = append(expired, record)
		}
	}
	return expired, nil
}

func (m *memStore) DeleteSanction(ctx context.Context, guildID, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.sanctions[:0]
	for _, record := range m.sanctions {
		if record.GuildID != guildID || record.UserID != userID || record.RoleID != roleID {
			kept = append(kept, record)
		}
	}
	m.sanctions = kept
	return nil
}

func (m *memStore) ResetGuild(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.guilds, guildID)
	delete(m.scores, guildID)
	return nil
}

func (m *memStore) sanctionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sanctions)
}

// sentMessage records one outgoing channel message.
type sentMessage struct {
	ChannelID string
	Content   string
	Silent    bool
}

// mockMessenger records Discord API calls. Optional func fields override
// the default no-op behavior.
type mockMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	deleted   []string
	reactions []string
	roleAdds  []string
	roleCuts  []string

	channelMessageSendComplexFunc func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
	channelMessageDeleteFunc      func(channelID, messageID string) error
	guildMemberFunc               func(guildID, userID string) (*discordgo.Member, error)
	guildMemberRoleAddFunc        func(guildID, userID, roleID string) error
	guildMemberRoleRemoveFunc     func(guildID, userID, roleID string) error
}

func (m *mockMessenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageSendComplexFunc != nil {
		return m.channelMessageSendComplexFunc(channelID, data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{
		ChannelID: channelID,
		Content:   data.Content,
		Silent:    data.Flags&discordgo.MessageFlagsSuppressNotifications != 0,
	})
	return &discordgo.Message{ID: "sent-msg", ChannelID: channelID, Content: data.Content}, nil
}

func (m *mockMessenger) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	if m.channelMessageDeleteFunc != nil {
		return m.channelMessageDeleteFunc(channelID, messageID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockMessenger) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emojiID)
	return nil
}

func (m *mockMessenger) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	if m.guildMemberFunc != nil {
		return m.guildMemberFunc(guildID, userID)
	}
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (m *mockMessenger) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	if m.guildMemberRoleAddFunc != nil {
		return m.guildMemberRoleAddFunc(guildID, userID, roleID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleAdds = append(m.roleAdds, userID+":"+roleID)
	return nil
}

func (m *mockMessenger) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	if m.guildMemberRoleRemoveFunc != nil {
		return m.guildMemberRoleRemoveFunc(guildID, userID, roleID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleCuts = append(m.roleCuts, userID+":"+roleID)
	return nil
}

func (m *mockMessenger) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// enabledSettings returns settings with counting turned on in a fixed
// channel, no delete-after timers, feedback on.
func enabledSettings() Settings {
	s := DefaultSettings()
	s.Enabled = true
	s.ChannelID = "chan-1"
	s.DeleteFeedback = false
	return s
}

// submission builds a valid candidate count for the standard test guild.
func submission(author, content string) Submission {
	return Submission{
		GuildID:        "guild-1",
		ChannelID:      "chan-1",
		MessageID:      "msg-1",
		AuthorID:       author,
		AuthorMention:  "<@" + author + ">",
		Content:        content,
		AccountAgeDays: 1000,
	}
}
