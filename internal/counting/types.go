package counting

import (
	"time"

	"counting-bot/internal/formatting"
)

// Ruin role durations accepted at configuration time, in seconds.
const (
	MinRuinRoleDuration = 60
	MaxRuinRoleDuration = 2_592_000 // 30 days
)

// MessageTemplates are the per-guild feedback templates. Placeholders are
// expanded by formatting.Expand; an unknown placeholder falls back to a
// generic message.
type MessageTemplates struct {
	NextNumber string `json:"next_number"`
	SameUser   string `json:"same_user"`
	Edit       string `json:"edit"`
	Ruin       string `json:"ruin"`
	Goal       string `json:"goal"`
	Progress   string `json:"progress"`
}

// Settings is the per-guild configuration, stored as a JSONB document.
type Settings struct {
	Enabled                bool             `json:"enabled"`
	ChannelID              string           `json:"channel_id,omitempty"`
	AllowRuin              bool             `json:"allow_ruin"`
	SameUserRestricted     bool             `json:"same_user_restricted"`
	MinAccountAgeDays      int              `json:"min_account_age_days"`
	ResetLeaderboardOnRuin bool             `json:"reset_leaderboard_on_ruin"`
	RuinRoleID             string           `json:"ruin_role_id,omitempty"`
	RuinRoleDuration       int64            `json:"ruin_role_duration,omitempty"` // seconds, 0 = permanent
	ExcludedRoleIDs        []string         `json:"excluded_role_ids,omitempty"`
	ResetRoleIDs           []string         `json:"reset_role_ids,omitempty"`
	ReactionsEnabled       bool             `json:"reactions_enabled"`
	ReactionEmoji          string           `json:"reaction_emoji"`
	ProgressEnabled        bool             `json:"progress_enabled"`
	ProgressInterval       int64            `json:"progress_interval"`
	Silent                 bool             `json:"silent"`
	DeleteAfter            int              `json:"delete_after"` // seconds
	DeleteFeedback         bool             `json:"delete_feedback"`
	DeleteGoalMessage      bool             `json:"delete_goal_message"`
	DeleteProgressMessage  bool             `json:"delete_progress_message"`
	EditFeedbackEnabled    bool             `json:"edit_feedback_enabled"`
	WrongNumberFeedback    bool             `json:"wrong_number_feedback"`
	Templates              MessageTemplates `json:"templates"`
}

// DefaultSettings returns the configuration a guild starts with before any
// admin customization. Counting is off until a channel is set and the game
// is toggled on.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             false,
		AllowRuin:           true,
		ReactionsEnabled:    true,
		ReactionEmoji:       formatting.DefaultReaction,
		ProgressInterval:    10,
		DeleteAfter:         10,
		EditFeedbackEnabled: true,
		WrongNumberFeedback: true,
		Templates: MessageTemplates{
			NextNumber: formatting.DefaultNextNumberMessage,
			SameUser:   formatting.DefaultSameUserMessage,
			Edit:       formatting.DefaultEditMessage,
			Ruin:       formatting.DefaultRuinMessage,
			Goal:       formatting.DefaultGoalMessage,
			Progress:   formatting.DefaultProgressMessage,
		},
	}
}

// GuildState is the engine-owned counting state for one guild. Count is the
// last accepted value; LastUserID is empty after a ruin, rewind or reset.
type GuildState struct {
	GuildID    string
	Count      int64
	LastUserID string
	Goals      []int64
	Settings   Settings
}

// Submission is a candidate count posted in a guild channel.
type Submission struct {
	GuildID        string
	ChannelID      string
	MessageID      string
	AuthorID       string
	AuthorMention  string
	AuthorIsBot    bool
	Content        string
	AccountAgeDays int
}

type Verdict int

const (
	VerdictIgnore Verdict = iota
	VerdictAccept
	VerdictReject
	VerdictRuin
)

func (v Verdict) String() string {
	switch v {
	case VerdictIgnore:
		return "ignore"
	case VerdictAccept:
		return "accept"
	case VerdictReject:
		return "reject"
	case VerdictRuin:
		return "ruin"
	}
	return "unknown"
}

type RejectReason string

const (
	ReasonAccountAge  RejectReason = "account_age"
	ReasonSameUser    RejectReason = "same_user"
	ReasonNotANumber  RejectReason = "not_a_number"
	ReasonWrongNumber RejectReason = "wrong_number"
)

// Decision is the outcome of validating one submission. NewCount is set on
// accept; Expected carries the value the guild is waiting for and is used
// in reject feedback.
type Decision struct {
	Verdict  Verdict
	Reason   RejectReason
	NewCount int64
	Expected int64
}

// LeaderboardEntry is one row of a guild leaderboard, ordered by score.
type LeaderboardEntry struct {
	UserID string
	Score  int64
}

// SanctionRecord is an active time-boxed ruin-role grant awaiting expiry.
type SanctionRecord struct {
	GuildID   string
	UserID    string
	RoleID    string
	ExpiresAt time.Time
}

// HistoryMessage is one message seen by the leaderboard rebuild importer.
type HistoryMessage struct {
	AuthorID    string
	AuthorIsBot bool
	Content     string
}

// RebuildReport summarizes one leaderboard rebuild pass.
type RebuildReport struct {
	MessagesScanned   int64
	BotSkipped        int64
	NonNumericSkipped int64
	OutOfSequence     int64
	ValidCounts       int64
	HighestCount      int64
	UniqueCounters    int
}
