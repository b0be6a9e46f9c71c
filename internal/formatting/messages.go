package formatting

import (
	"fmt"
	"regexp"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	MsgAdminRequired   = "You need Administrator permissions to use this command."
	MsgChannelRequired = "No counting channel is set. Use /countingset channel first."
	MsgSaveError       = "Failed to save configuration."
	MsgResetDenied     = "You do not have permission to reset the count."
	MsgNoCountsYet     = "No counts recorded yet. Get counting!"
	MsgBotsCannotCount = "Bots cannot count."
)

// Default message templates for the counting game. Admins can override these
// per guild; placeholders are expanded by Expand.
const (
	DefaultNextNumberMessage = "That is not the next number, {user}. The next number is {next_count}."
	DefaultSameUserMessage   = "You cannot count twice in a row, {user}."
	DefaultEditMessage       = "Editing messages is not allowed here. The next number is {next_count}."
	DefaultRuinMessage       = "{user} ruined the count at {count}! The count has been reset, start again from 1."
	DefaultGoalMessage       = "{user} reached the goal of {goal}! Congratulations!"
	DefaultProgressMessage   = "{remaining} counts remaining until the goal of {goal}!"
	DefaultReaction          = "✅"
)

var printer = message.NewPrinter(language.English)

// Humanize renders n with thousands separators for user-facing output.
func Humanize(n int64) string {
	return printer.Sprintf("%d", n)
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Expand substitutes {placeholder} tokens in a guild-configured template.
// A template referencing a placeholder that is not in vars returns an error
// so callers can fall back to a generic message instead of sending a
// half-expanded one.
func Expand(template string, vars map[string]string) (string, error) {
	var unknown string
	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := vars[name]
		if !ok {
			if unknown == "" {
				unknown = name
			}
			return token
		}
		return value
	})
	if unknown != "" {
		return "", fmt.Errorf("unknown placeholder %q in template", unknown)
	}
	return expanded, nil
}

func MsgAccountTooYoung(minAgeDays int) string {
	return fmt.Sprintf("Account must be at least %d days old to count.", minAgeDays)
}

func MsgGoalFallback(userMention string, goal int64) string {
	return fmt.Sprintf("%s reached the goal of %s! But the goal message is misconfigured.", userMention, Humanize(goal))
}

func MsgDeletionRewind(deleted, newCount int64) string {
	return fmt.Sprintf("Count message deleted (#%s). Reset to **%s**. Next: **%s**",
		Humanize(deleted), Humanize(newCount), Humanize(newCount+1))
}

func MsgCountSet(value int64) string {
	return fmt.Sprintf("Count has been set to %s.", Humanize(value))
}

func MsgGoalAdded(goal int64) string {
	return fmt.Sprintf("Counting goal %s added.", Humanize(goal))
}

func MsgGoalRemoved(goal int64) string {
	return fmt.Sprintf("Counting goal %s removed.", Humanize(goal))
}

func MsgStats(name string, counts int64, rank int) string {
	rankStr := "Unranked"
	if rank > 0 {
		rankStr = fmt.Sprintf("#%d", rank)
	}
	return fmt.Sprintf("**%s** has counted %s times. Server rank: %s", name, Humanize(counts), rankStr)
}
