package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"counting-bot/internal/counting"
	"counting-bot/internal/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS counting_guilds (
	guild_id     TEXT PRIMARY KEY,
	count        BIGINT NOT NULL DEFAULT 0,
	last_user_id TEXT,
	goals        BIGINT[] NOT NULL DEFAULT '{}',
	settings     JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS counting_leaderboard (
	guild_id TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	score    BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (guild_id, user_id)
);

CREATE TABLE IF NOT EXISTS counting_sanctions (
	guild_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	role_id    TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (guild_id, user_id, role_id)
);

CREATE INDEX IF NOT EXISTS counting_sanctions_expiry ON counting_sanctions (expires_at);
`

// PostgresStore implements counting.Store on a pgx connection pool. Accept
// and ruin commits run in a transaction so a persistence failure never
// leaves a partial state change behind.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("unable to apply schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) GetGuildState(ctx context.Context, guildID string) (*counting.GuildState, error) {
	state := &counting.GuildState{GuildID: guildID}

	var lastUser pgtype.Text
	var settingsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT count, last_user_id, goals, settings FROM counting_guilds WHERE guild_id = $1`,
		guildID,
	).Scan(&state.Count, &lastUser, &state.Goals, &settingsJSON)

	if errors.Is(err, pgx.ErrNoRows) {
		return s.createDefaultGuild(ctx, guildID)
	}
	if err != nil {
		return nil, fmt.Errorf("load guild state: %w", err)
	}

	if lastUser.Valid {
		state.LastUserID = lastUser.String
	}
	if err := json.Unmarshal(settingsJSON, &state.Settings); err != nil {
		return nil, fmt.Errorf("decode guild settings: %w", err)
	}

	return state, nil
}

func (s *PostgresStore) createDefaultGuild(ctx context.Context, guildID string) (*counting.GuildState, error) {
	settings := counting.DefaultSettings()
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode default settings: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO counting_guilds (guild_id, settings) VALUES ($1, $2)
		 ON CONFLICT (guild_id) DO NOTHING`,
		guildID, settingsJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("create guild state: %w", err)
	}

	return &counting.GuildState{
		GuildID:  guildID,
		Goals:    []int64{},
		Settings: settings,
	}, nil
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, guildID string, settings counting.Settings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE counting_guilds SET settings = $2, updated_at = now() WHERE guild_id = $1`,
		guildID, settingsJSON,
	)
	return err
}

func (s *PostgresStore) SetGoals(ctx context.Context, guildID string, goals []int64) error {
	if goals == nil {
		goals = []int64{}
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE counting_guilds SET goals = $2, updated_at = now() WHERE guild_id = $1`,
		guildID, goals,
	)
	return err
}

func (s *PostgresStore) RemoveGoal(ctx context.Context, guildID string, goal int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE counting_guilds SET goals = array_remove(goals, $2), updated_at = now() WHERE guild_id = $1`,
		guildID, goal,
	)
	return err
}

func (s *PostgresStore) CommitAccept(ctx context.Context, guildID string, newCount int64, userID string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE counting_guilds SET count = $2, last_user_id = $3, updated_at = now() WHERE guild_id = $1`,
			guildID, newCount, userID,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO counting_leaderboard (guild_id, user_id, score) VALUES ($1, $2, 1)
			 ON CONFLICT (guild_id, user_id) DO UPDATE SET score = counting_leaderboard.score + 1`,
			guildID, userID,
		)
		return err
	})
	observe("commit_accept", err)
	return err
}

func (s *PostgresStore) CommitRuin(ctx context.Context, guildID, userID string, resetUserScore bool) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE counting_guilds SET count = 0, last_user_id = NULL, updated_at = now() WHERE guild_id = $1`,
			guildID,
		); err != nil {
			return err
		}

		if !resetUserScore {
			return nil
		}
		_, err := tx.Exec(ctx,
			`UPDATE counting_leaderboard SET score = 0 WHERE guild_id = $1 AND user_id = $2`,
			guildID, userID,
		)
		return err
	})
	observe("commit_ruin", err)
	return err
}

func (s *PostgresStore) RewindCount(ctx context.Context, guildID string, newCount int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE counting_guilds SET count = $2, last_user_id = NULL, updated_at = now() WHERE guild_id = $1`,
		guildID, newCount,
	)
	observe("rewind_count", err)
	return err
}

func (s *PostgresStore) SetCount(ctx context.Context, guildID string, value int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE counting_guilds SET count = $2, last_user_id = NULL, updated_at = now() WHERE guild_id = $1`,
		guildID, value,
	)
	return err
}

func (s *PostgresStore) Leaderboard(ctx context.Context, guildID string) ([]counting.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, score FROM counting_leaderboard WHERE guild_id = $1 AND score > 0 ORDER BY score DESC`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []counting.LeaderboardEntry
	for rows.Next() {
		var entry counting.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Score); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) UserScore(ctx context.Context, guildID, userID string) (int64, error) {
	var score int64
	err := s.pool.QueryRow(ctx,
		`SELECT score FROM counting_leaderboard WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID,
	).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return score, err
}

func (s *PostgresStore) ResetLeaderboard(ctx context.Context, guildID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM counting_leaderboard WHERE guild_id = $1`, guildID)
	return err
}

func (s *PostgresStore) ResetUserScore(ctx context.Context, guildID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE counting_leaderboard SET score = 0 WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID,
	)
	return err
}

func (s *PostgresStore) ReplaceLeaderboard(ctx context.Context, guildID string, scores map[string]int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM counting_leaderboard WHERE guild_id = $1`, guildID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for userID, score := range scores {
			if score <= 0 {
				continue
			}
			batch.Queue(
				`INSERT INTO counting_leaderboard (guild_id, user_id, score) VALUES ($1, $2, $3)`,
				guildID, userID, score,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *PostgresStore) CreateSanction(ctx context.Context, record counting.SanctionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO counting_sanctions (guild_id, user_id, role_id, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (guild_id, user_id, role_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		record.GuildID, record.UserID, record.RoleID, record.ExpiresAt,
	)
	return err
}

func (s *PostgresStore) ExpiredSanctions(ctx context.Context, now time.Time) ([]counting.SanctionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT guild_id, user_id, role_id, expires_at FROM counting_sanctions WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []counting.SanctionRecord
	for rows.Next() {
		var record counting.SanctionRecord
		if err := rows.Scan(&record.GuildID, &record.UserID, &record.RoleID, &record.ExpiresAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) DeleteSanction(ctx context.Context, guildID, userID, roleID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM counting_sanctions WHERE guild_id = $1 AND user_id = $2 AND role_id = $3`,
		guildID, userID, roleID,
	)
	return err
}

func (s *PostgresStore) ResetGuild(ctx context.Context, guildID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, query := range []string{
			`DELETE FROM counting_sanctions WHERE guild_id = $1`,
			`DELETE FROM counting_leaderboard WHERE guild_id = $1`,
			`DELETE FROM counting_guilds WHERE guild_id = $1`,
		} {
			if _, err := tx.Exec(ctx, query, guildID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func observe(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StorageOperations.WithLabelValues(operation, status).Inc()
}
