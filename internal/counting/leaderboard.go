package counting

import (
	"context"
)

// Rank returns a user's leaderboard position (1-based) and score. Users
// with a zero score are unranked (rank 0). Ties keep the store's iteration
// order; exact tie ordering is not a correctness property here.
func (e *Engine) Rank(ctx context.Context, guildID, userID string) (int, int64, error) {
	entries, err := e.store.Leaderboard(ctx, guildID)
	if err != nil {
		return 0, 0, err
	}

	for i, entry := range entries {
		if entry.UserID == userID {
			return i + 1, entry.Score, nil
		}
	}
	return 0, 0, nil
}

// Top returns the highest-scoring entries, at most limit of them.
func (e *Engine) Top(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error) {
	entries, err := e.store.Leaderboard(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (e *Engine) ResetLeaderboard(ctx context.Context, guildID string) error {
	return e.store.ResetLeaderboard(ctx, guildID)
}

func (e *Engine) ResetUserScore(ctx context.Context, guildID, userID string) error {
	return e.store.ResetUserScore(ctx, guildID, userID)
}

func (e *Engine) UserScore(ctx context.Context, guildID, userID string) (int64, error) {
	return e.store.UserScore(ctx, guildID, userID)
}

// RebuildLeaderboard rebuilds a guild's leaderboard from channel history.
// The scan runs without the guild submission lock; counts accepted while
// the scan is in flight are overwritten by the final commit, which the
// operator accepts when confirming the rebuild. With merge set, existing
// scores seed the accumulator instead of being discarded.
func (e *Engine) RebuildLeaderboard(ctx context.Context, guildID string, history <-chan HistoryMessage, merge bool) (RebuildReport, error) {
	seed := make(map[string]int64)
	if merge {
		entries, err := e.store.Leaderboard(ctx, guildID)
		if err != nil {
			return RebuildReport{}, err
		}
		for _, entry := range entries {
			seed[entry.UserID] = entry.Score
		}
	}

	scores, report := Rebuild(history, seed)

	if err := e.store.ReplaceLeaderboard(ctx, guildID, scores); err != nil {
		return report, err
	}
	return report, nil
}

// Rebuild walks history oldest-first and credits authors for values that
// continue the running sequence. It is deliberately lenient with
// historical data: bot and non-numeric messages are skipped, a literal 1
// always restarts the sequence, and same-user or account-age rules are not
// enforced since the history predates those settings. A mid-sequence "1"
// that was actually an invalid entry is still treated as a restart; that
// ambiguity is inherent to scanning history after the fact.
func Rebuild(history <-chan HistoryMessage, seed map[string]int64) (map[string]int64, RebuildReport) {
	scores := make(map[string]int64, len(seed))
	for userID, score := range seed {
		scores[userID] = score
	}

	var report RebuildReport
	expected := int64(1)

	for msg := range history {
		report.MessagesScanned++

		if msg.AuthorIsBot {
			report.BotSkipped++
			continue
		}

		value, ok := parseCountLiteral(msg.Content)
		if !ok {
			report.NonNumericSkipped++
			continue
		}

		switch {
		case value == expected:
			report.ValidCounts++
			if value > report.HighestCount {
				report.HighestCount = value
			}
			scores[msg.AuthorID]++
			expected++
		case value == 1:
			report.ValidCounts++
			if report.HighestCount < 1 {
				report.HighestCount = 1
			}
			scores[msg.AuthorID]++
			expected = 2
		default:
			report.OutOfSequence++
		}
	}

	report.UniqueCounters = len(scores)
	return scores, report
}
