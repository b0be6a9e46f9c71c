package counting

import (
	"strconv"
	"strings"
)

// Decide validates one submission against the current guild state. It is a
// pure function: callers commit the resulting state transition themselves,
// under the per-guild lock.
//
// Rules are evaluated in order, first match wins:
//  1. counting disabled, wrong channel, or bot author -> ignore
//  2. account younger than the configured minimum -> reject
//  3. same author as the previous accepted count (when restricted) -> reject
//  4. content is not a plain base-10 integer literal -> ruin (or reject
//     when ruining is disabled)
//  5. parsed value equals count+1 -> accept
//  6. anything else -> ruin (or reject)
func Decide(state *GuildState, sub Submission) Decision {
	s := state.Settings

	if !s.Enabled || s.ChannelID == "" || sub.ChannelID != s.ChannelID || sub.AuthorIsBot {
		return Decision{Verdict: VerdictIgnore}
	}

	expected := state.Count + 1

	if s.MinAccountAgeDays > 0 && sub.AccountAgeDays < s.MinAccountAgeDays {
		return Decision{Verdict: VerdictReject, Reason: ReasonAccountAge, Expected: expected}
	}

	if s.SameUserRestricted && state.LastUserID != "" && sub.AuthorID == state.LastUserID {
		return Decision{Verdict: VerdictReject, Reason: ReasonSameUser, Expected: expected}
	}

	value, ok := parseCountLiteral(sub.Content)
	if !ok {
		if s.AllowRuin {
			return Decision{Verdict: VerdictRuin, Reason: ReasonNotANumber, Expected: expected}
		}
		return Decision{Verdict: VerdictReject, Reason: ReasonNotANumber, Expected: expected}
	}

	if value == expected {
		return Decision{Verdict: VerdictAccept, NewCount: expected, Expected: expected}
	}

	if s.AllowRuin {
		return Decision{Verdict: VerdictRuin, Reason: ReasonWrongNumber, Expected: expected}
	}
	return Decision{Verdict: VerdictReject, Reason: ReasonWrongNumber, Expected: expected}
}

// parseCountLiteral accepts only canonical non-negative base-10 integers:
// ASCII digits, no sign, no leading zeros. Anything looser would let
// "007" or "١٢٣" advance the sequence.
func parseCountLiteral(content string) (int64, bool) {
	text := strings.TrimSpace(content)
	if text == "" {
		return 0, false
	}

	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}

	if len(text) > 1 && text[0] == '0' {
		return 0, false
	}

	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// A digit string too large for int64 is still a number, just one
		// that can never match the expected value.
		return -1, true
	}

	return value, true
}
