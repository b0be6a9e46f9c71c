package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"counting-bot/internal/counting"
	"counting-bot/internal/formatting"
)

// CountingSet handles the /countingset admin command group.
func (h *BotHandler) CountingSet(s DiscordSession, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	sub := options[0]
	switch sub.Name {
	case "channel":
		h.setChannel(s, i, sub.Options)
	case "toggle":
		h.toggleSetting(s, i, "toggle")
	case "ruin":
		h.toggleSetting(s, i, "ruin")
	case "sameuser":
		h.toggleSetting(s, i, "sameuser")
	case "reactions":
		h.toggleSetting(s, i, "reactions")
	case "progress":
		h.toggleSetting(s, i, "progress")
	case "silent":
		h.toggleSetting(s, i, "silent")
	case "ruinleaderboard":
		h.toggleSetting(s, i, "ruinleaderboard")
	case "emoji":
		h.setEmoji(s, i, sub.Options)
	case "minage":
		h.setMinAge(s, i, sub.Options)
	case "progressinterval":
		h.setProgressInterval(s, i, sub.Options)
	case "goal":
		h.manageGoal(s, i, sub.Options)
	case "ruinrole":
		h.setRuinRole(s, i, sub.Options)
	case "excluderole":
		h.manageRoleList(s, i, sub.Options, "excluderole")
	case "resetrole":
		h.manageRoleList(s, i, sub.Options, "resetrole")
	case "message":
		h.setMessage(s, i, sub.Options)
	case "resetleaderboard":
		h.resetLeaderboard(s, i, sub.Options)
	case "buildleaderboard":
		h.buildLeaderboard(s, i, sub.Options)
	case "resetall":
		h.resetAll(s, i, sub.Options)
	case "settings":
		h.showSettings(s, i)
	}
}

func (h *BotHandler) setChannel(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var channelID string
	for _, opt := range opts {
		if opt.Name == "channel" {
			if ch := opt.ChannelValue(nil); ch != nil {
				channelID = ch.ID
			}
		}
	}

	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		settings.ChannelID = channelID
		return nil
	})
	if err != nil {
		h.saveError(s, i, err)
		return
	}

	if channelID == "" {
		respond(s, i, "Counting channel cleared. Counting is effectively off until a channel is set.", false)
		return
	}
	respond(s, i, fmt.Sprintf("Counting channel set to <#%s>. Enable the game with /countingset toggle if it is off.", channelID), false)
}

// toggleSetting flips one boolean setting and reports the new value.
func (h *BotHandler) toggleSetting(s DiscordSession, i *discordgo.InteractionCreate, name string) {
	var enabled bool
	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		var field *bool
		switch name {
		case "toggle":
			field = &settings.Enabled
		case "ruin":
			field = &settings.AllowRuin
		case "sameuser":
			field = &settings.SameUserRestricted
		case "reactions":
			field = &settings.ReactionsEnabled
		case "progress":
			field = &settings.ProgressEnabled
		case "silent":
			field = &settings.Silent
		case "ruinleaderboard":
			field = &settings.ResetLeaderboardOnRuin
		default:
			return fmt.Errorf("unknown toggle %q", name)
		}
		*field = !*field
		enabled = *field
		return nil
	})
	if err != nil {
		h.saveError(s, i, err)
		return
	}

	labels := map[string]string{
		"toggle":          "Counting",
		"ruin":            "Count ruining",
		"sameuser":        "The same-user restriction",
		"reactions":       "Reactions on correct counts",
		"progress":        "Progress messages",
		"silent":          "Silent mode",
		"ruinleaderboard": "Leaderboard reset on ruin",
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	respond(s, i, fmt.Sprintf("%s is now %s.", labels[name], status), false)
}

func (h *BotHandler) setEmoji(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var emoji string
	for _, opt := range opts {
		if opt.Name == "emoji" {
			emoji = strings.TrimSpace(opt.StringValue())
		}
	}
	if emoji == "" {
		respond(s, i, "Please provide an emoji.", true)
		return
	}

	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		settings.ReactionEmoji = emoji
		return nil
	})
	if err != nil {
		h.saveError(s, i, err)
		return
	}
	respond(s, i, fmt.Sprintf("Reaction set to %s.", emoji), false)
}

func (h *BotHandler) setMinAge(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var days int64
	for _, opt := range opts {
		if opt.Name == "days" {
			days = opt.IntValue()
		}
	}
	if days < 0 || days > 365 {
		respond(s, i, "Minimum account age must be between 0 and 365 days.", true)
		return
	}

	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		settings.MinAccountAgeDays = int(days)
		return nil
	})
	if err != nil {
		h.saveError(s, i, err)
		return
	}

	if days == 0 {
		respond(s, i, "Account age requirement disabled.", false)
		return
	}
	respond(s, i, fmt.Sprintf("Accounts must now be at least %d days old to count.", days), false)
}

func (h *BotHandler) setProgressInterval(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var interval int64
	for _, opt := range opts {
		if opt.Name == "interval" {
			interval = opt.IntValue()
		}
	}
	if interval < 1 || interval > 100 {
		respond(s, i, "Progress interval must be between 1 and 100 counts.", true)
		return
	}

	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		settings.ProgressInterval = interval
		return nil
	})
	if err != nil {
		h.saveError(s, i, err)
		return
	}
	respond(s, i, fmt.Sprintf("Progress messages will be sent every %d counts.", interval), false)
}

func (h *BotHandler) manageGoal(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var action string
	var goal int64
	for _, opt := range opts {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case "value":
			goal = opt.IntValue()
		}
	}

	ctx := context.Background()
	switch action {
	case "clear":
		if err := h.Engine.ClearGoals(ctx, i.GuildID); err != nil {
			h.saveError(s, i, err)
			return
		}
		respond(s, i, "All counting goals cleared.", false)
	case "add":
		if goal < 1 {
			respond(s, i, "Goals must be positive.", true)
			return
		}
		added, err := h.Engine.AddGoal(ctx, i.GuildID, goal)
		if err != nil {
			h.saveError(s, i, err)
			return
		}
		if !added {
			respond(s, i, fmt.Sprintf("Goal %s is already set.", formatting.Humanize(goal)), true)
			return
		}
		respond(s, i, formatting.MsgGoalAdded(goal), false)
	case "remove":
		removed, err := h.Engine.RemoveGoal(ctx, i.GuildID, goal)
		if err != nil {
			h.saveError(s, i, err)
			return
		}
		if !removed {
			respond(s, i, fmt.Sprintf("Goal %s is not in the list.", formatting.Humanize(goal)), true)
			return
		}
		respond(s, i, formatting.MsgGoalRemoved(goal), false)
	case "list":
		state, err := h.Engine.State(ctx, i.GuildID)
		if err != nil {
			h.saveError(s, i, err)
			return
		}
		if len(state.Goals) == 0 {
			respond(s, i, "No counting goals set.", false)
			return
		}
		goals := make([]string, len(state.Goals))
		for idx, g := range state.Goals {
			goals[idx] = formatting.Humanize(g)
		}
		respond(s, i, "Current counting goals: "+strings.Join(goals, ", "), false)
	default:
		respond(s, i, "Invalid action. Use add, remove, clear or list.", true)
	}
}

func (h *BotHandler) setRuinRole(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var roleID string
	var duration int64
	for _, opt := range opts {
		switch opt.Name {
		case "role":
			if role := opt.RoleValue(nil, i.GuildID); role != nil {
				roleID = role.ID
			}
		case "duration":
			duration = opt.IntValue()
		}
	}

	if roleID == "" {
		err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
			settings.RuinRoleID = ""
			settings.RuinRoleDuration = 0
			return nil
		})
		if err != nil {
			h.saveError(s, i, err)
			return
		}
		respond(s, i, "Ruin role cleared.", false)
		return
	}

	if duration != 0 && (duration < counting.MinRuinRoleDuration || duration > counting.MaxRuinRoleDuration) {
		respond(s, i, "Ruin role duration must be between 60 seconds and 30 days (or omitted for a permanent role).", true)
		return
	}

	// The hierarchy check happens here, at configuration time, not on
	// every grant.
	if err := h.checkRoleHierarchy(s, i, roleID); err != nil {
		respond(s, i, err.Error(), true)
		return
	}

	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		settings.RuinRoleID = roleID
		settings.RuinRoleDuration = duration
		return nil
	})
	if err != nil {
		h.saveError(s, i, err)
		return
	}

	if duration > 0 {
		respond(s, i, fmt.Sprintf("Ruin role set to <@&%s> for %d seconds per ruin.", roleID, duration), false)
		return
	}
	respond(s, i, fmt.Sprintf("Ruin role set to <@&%s> (permanent until manually removed).", roleID), false)
}

// checkRoleHierarchy verifies the ruin role sits below both the bot's and
// the invoking admin's top role, so later grants cannot fail on hierarchy.
func (h *BotHandler) checkRoleHierarchy(s DiscordSession, i *discordgo.InteractionCreate, roleID string) error {
	roles, err := s.GuildRoles(i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to inspect guild roles, try again")
	}

	positions := make(map[string]int, len(roles))
	for _, role := range roles {
		positions[role.ID] = role.Position
	}

	target, ok := positions[roleID]
	if !ok {
		return fmt.Errorf("that role no longer exists")
	}

	botMember, err := s.GuildMember(i.GuildID, h.BotUserID)
	if err != nil {
		return fmt.Errorf("failed to inspect my roles, try again")
	}

	if topPosition(botMember.Roles, positions) <= target {
		return fmt.Errorf("that role is above my highest role, I would not be able to assign it")
	}
	if i.Member != nil && topPosition(i.Member.Roles, positions) <= target {
		return fmt.Errorf("that role is above your highest role")
	}
	return nil
}

func topPosition(roleIDs []string, positions map[string]int) int {
	top := 0
	for _, id := range roleIDs {
		if pos, ok := positions[id]; ok && pos > top {
			top = pos
		}
	}
	return top
}

// manageRoleList adds/removes/clears entries of the excluded-roles or
// reset-roles list.
func (h *BotHandler) manageRoleList(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption, kind string) {
	var action, roleID string
	for _, opt := range opts {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case "role":
			if role := opt.RoleValue(nil, i.GuildID); role != nil {
				roleID = role.ID
			}
		}
	}

	label := "Excluded roles"
	pick := func(settings *counting.Settings) *[]string { return &settings.ExcludedRoleIDs }
	if kind == "resetrole" {
		label = "Reset roles"
		pick = func(settings *counting.Settings) *[]string { return &settings.ResetRoleIDs }
	}

	var result string
	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		list := pick(settings)
		switch action {
		case "clear":
			*list = nil
			result = label + " cleared."
		case "add":
			if roleID == "" {
				return fmt.Errorf("role required")
			}
			if slices.Contains(*list, roleID) {
				result = "That role is already in the list."
				return nil
			}
			*list = append(*list, roleID)
			result = fmt.Sprintf("%s updated: added <@&%s>.", label, roleID)
		case "remove":
			if roleID == "" {
				return fmt.Errorf("role required")
			}
			idx := slices.Index(*list, roleID)
			if idx < 0 {
				result = "That role is not in the list."
				return nil
			}
			*list = slices.Delete(*list, idx, idx+1)
			result = fmt.Sprintf("%s updated: removed <@&%s>.", label, roleID)
		default:
			return fmt.Errorf("invalid action")
		}
		return nil
	})
	if err != nil {
		respond(s, i, "Invalid request: provide an action and, for add/remove, a role.", true)
		return
	}
	respond(s, i, result, false)
}

func (h *BotHandler) setMessage(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	var kind, template string
	for _, opt := range opts {
		switch opt.Name {
		case "type":
			kind = opt.StringValue()
		case "template":
			template = opt.StringValue()
		}
	}

	// Reject templates with unknown placeholders up front instead of
	// falling back at send time.
	probe := map[string]string{
		"user": "u", "count": "1", "next_count": "2", "goal": "3", "remaining": "4",
	}
	if _, err := formatting.Expand(template, probe); err != nil {
		respond(s, i, "That template references an unknown placeholder. Valid placeholders: {user}, {count}, {next_count}, {goal}, {remaining}.", true)
		return
	}

	err := h.Engine.UpdateSettings(context.Background(), i.GuildID, func(settings *counting.Settings) error {
		switch kind {
		case "count":
			settings.Templates.NextNumber = template
		case "sameuser":
			settings.Templates.SameUser = template
		case "edit":
			settings.Templates.Edit = template
		case "ruin":
			settings.Templates.Ruin = template
		case "goal":
			settings.Templates.Goal = template
		case "progress":
			settings.Templates.Progress = template
		default:
			return fmt.Errorf("unknown message type %q", kind)
		}
		return nil
	})
	if err != nil {
		respond(s, i, "Unknown message type.", true)
		return
	}
	respond(s, i, fmt.Sprintf("The %s message has been updated.", kind), false)
}

func (h *BotHandler) resetLeaderboard(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	if !confirmed(opts) {
		respond(s, i, "This will permanently delete all leaderboard data for this server. Re-run with `confirm` set to true to proceed.", true)
		return
	}

	if err := h.Engine.ResetLeaderboard(context.Background(), i.GuildID); err != nil {
		h.saveError(s, i, err)
		return
	}
	respond(s, i, "Leaderboard reset successfully.", false)
}

func (h *BotHandler) resetAll(s DiscordSession, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	if !confirmed(opts) {
		respond(s, i, "This will reset ALL counting settings, the count and the leaderboard. Re-run with `confirm` set to true to proceed.", true)
		return
	}

	if err := h.Engine.ResetGuild(context.Background(), i.GuildID); err != nil {
		h.saveError(s, i, err)
		return
	}
	respond(s, i, "All counting settings reset.", false)
}

func (h *BotHandler) showSettings(s DiscordSession, i *discordgo.InteractionCreate) {
	state, err := h.Engine.State(context.Background(), i.GuildID)
	if err != nil {
		h.saveError(s, i, err)
		return
	}

	cfg := state.Settings
	status := func(v bool) string {
		if v {
			return "Enabled"
		}
		return "Disabled"
	}
	channel := "Not set"
	if cfg.ChannelID != "" {
		channel = fmt.Sprintf("<#%s>", cfg.ChannelID)
	}
	ruinRole := "Not set"
	if cfg.RuinRoleID != "" {
		ruinRole = fmt.Sprintf("<@&%s>", cfg.RuinRoleID)
		if cfg.RuinRoleDuration > 0 {
			ruinRole += fmt.Sprintf(" (%ds)", cfg.RuinRoleDuration)
		} else {
			ruinRole += " (permanent)"
		}
	}

	lines := []string{
		"**Counting Settings**",
		fmt.Sprintf("Channel: %s", channel),
		fmt.Sprintf("Counting: %s", status(cfg.Enabled)),
		fmt.Sprintf("Current count: %s", formatting.Humanize(state.Count)),
		fmt.Sprintf("Allow ruin: %s", status(cfg.AllowRuin)),
		fmt.Sprintf("Same-user restriction: %s", status(cfg.SameUserRestricted)),
		fmt.Sprintf("Min account age: %d days", cfg.MinAccountAgeDays),
		fmt.Sprintf("Reset leaderboard on ruin: %s", status(cfg.ResetLeaderboardOnRuin)),
		fmt.Sprintf("Ruin role: %s", ruinRole),
		fmt.Sprintf("Reactions: %s (%s)", status(cfg.ReactionsEnabled), cfg.ReactionEmoji),
		fmt.Sprintf("Progress messages: %s (every %d counts)", status(cfg.ProgressEnabled), cfg.ProgressInterval),
		fmt.Sprintf("Silent mode: %s", status(cfg.Silent)),
		fmt.Sprintf("Pending goals: %d", len(state.Goals)),
	}
	respond(s, i, strings.Join(lines, "\n"), false)
}

func (h *BotHandler) saveError(s DiscordSession, i *discordgo.InteractionCreate, err error) {
	slog.Error("Failed to update counting settings", "guild_id", i.GuildID, "error", err)
	respond(s, i, formatting.MsgSaveError, true)
}
