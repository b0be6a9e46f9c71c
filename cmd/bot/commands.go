package main

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

func GetApplicationCommands() []*discordgo.ApplicationCommand {
	confirmOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "confirm",
		Description: "Set to true to confirm this irreversible action",
	}
	roleOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "The role to add or remove",
	}
	listActionOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "action",
		Description: "What to do with the list",
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "add", Value: "add"},
			{Name: "remove", Value: "remove"},
			{Name: "clear", Value: "clear"},
		},
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "counting",
			Description: "Counting game commands",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stats",
					Description: "Show counting stats for you or another member",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "The member to look up (defaults to you)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Show the counting leaderboard",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetme",
					Description: "Erase your own counting stats in this server",
					Options:     []*discordgo.ApplicationCommandOption{confirmOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setcount",
					Description: "Set the current count (admins and reset-role holders)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "value",
							Description: "The new count value",
							Required:    true,
							MinValue:    func() *float64 { v := 0.0; return &v }(),
						},
						confirmOption,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetcount",
					Description: "Reset the count to 0 (admins and reset-role holders)",
					Options:     []*discordgo.ApplicationCommandOption{confirmOption},
				},
			},
		},
		{
			Name:        "countingset",
			Description: "Configure the counting game (admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Set or clear the counting channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "The counting channel (omit to clear)",
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "toggle",
					Description: "Turn the counting game on or off",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ruin",
					Description: "Toggle whether a wrong number ruins the count",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "sameuser",
					Description: "Toggle whether the same member may count twice in a row",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reactions",
					Description: "Toggle reactions on correct counts",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "progress",
					Description: "Toggle periodic progress messages towards the next goal",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "silent",
					Description: "Toggle silent mode (bot messages suppress notifications)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ruinleaderboard",
					Description: "Toggle resetting the leaderboard when the count is ruined",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "emoji",
					Description: "Set the reaction used on correct counts",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "emoji",
							Description: "The emoji to react with",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "minage",
					Description: "Set the minimum account age required to count",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "days",
							Description: "Minimum account age in days (0 disables)",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "progressinterval",
					Description: "Set how often progress messages are sent",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "interval",
							Description: "Send a progress message every N counts",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "goal",
					Description: "Manage counting goals",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "action",
							Description: "What to do with the goal list",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "add", Value: "add"},
								{Name: "remove", Value: "remove"},
								{Name: "clear", Value: "clear"},
								{Name: "list", Value: "list"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "value",
							Description: "The goal value (for add and remove)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ruinrole",
					Description: "Set or clear the role given to members who ruin the count",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "The role to assign (omit to clear)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "duration",
							Description: "How long the role lasts in seconds (omit for permanent)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "excluderole",
					Description: "Manage roles exempt from the ruin role",
					Options:     []*discordgo.ApplicationCommandOption{listActionOption, roleOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetrole",
					Description: "Manage roles allowed to set or reset the count",
					Options:     []*discordgo.ApplicationCommandOption{listActionOption, roleOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "message",
					Description: "Customize a bot message template",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "type",
							Description: "Which message to customize",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "count", Value: "count"},
								{Name: "sameuser", Value: "sameuser"},
								{Name: "edit", Value: "edit"},
								{Name: "ruin", Value: "ruin"},
								{Name: "goal", Value: "goal"},
								{Name: "progress", Value: "progress"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "template",
							Description: "The template text ({user}, {count}, {next_count}, {goal}, {remaining})",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetleaderboard",
					Description: "Erase the server leaderboard",
					Options:     []*discordgo.ApplicationCommandOption{confirmOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "buildleaderboard",
					Description: "Rebuild the leaderboard from counting channel history",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "merge",
							Description: "Merge rebuilt scores into the current leaderboard instead of replacing it",
						},
						confirmOption,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resetall",
					Description: "Reset all counting settings, the count and the leaderboard",
					Options:     []*discordgo.ApplicationCommandOption{confirmOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "settings",
					Description: "Show the current counting configuration",
				},
			},
		},
	}
}

func RegisterCommands(session CommandSession, commands []*discordgo.ApplicationCommand, userID, guildID string) []*discordgo.ApplicationCommand {
	registeredCommands := make([]*discordgo.ApplicationCommand, len(commands))

	for i, cmd := range commands {
		registered, err := session.ApplicationCommandCreate(userID, guildID, cmd)
		if err != nil {
			slog.Error("Cannot create command", "name", cmd.Name, "error", err)
			continue
		}
		registeredCommands[i] = registered
		slog.Info("Registered command", "name", cmd.Name)
	}

	return registeredCommands
}

func CleanupCommands(session CommandSession, commands []*discordgo.ApplicationCommand, userID, guildID string) {
	for _, cmd := range commands {
		if cmd == nil {
			continue
		}
		err := session.ApplicationCommandDelete(userID, guildID, cmd.ID)
		if err != nil {
			slog.Error("Cannot delete command", "name", cmd.Name, "error", err)
		}
	}
}
