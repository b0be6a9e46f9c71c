package counting

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"counting-bot/internal/metrics"
)

// SanctionManager assigns the configured ruin role to offenders and owns
// the background sweep that revokes expired grants. Records are kept in the
// store; the platform side is best-effort, a user who left the guild or a
// missing permission is a no-op, never a fault.
type SanctionManager struct {
	store   Store
	session Messenger
	now     func() time.Time
}

func NewSanctionManager(store Store, session Messenger) *SanctionManager {
	return &SanctionManager{
		store:   store,
		session: session,
		now:     time.Now,
	}
}

// Apply grants the ruin role to the offending user. Users holding any
// excluded role are spared. Role hierarchy is validated when the role is
// configured, not here. With a duration set, a SanctionRecord is created
// for the sweep; without one the grant is permanent until removed by hand.
func (m *SanctionManager) Apply(ctx context.Context, guildID, userID string, s Settings) {
	if s.RuinRoleID == "" {
		return
	}

	if len(s.ExcludedRoleIDs) > 0 {
		member, err := m.session.GuildMember(guildID, userID)
		if err != nil {
			slog.Warn("Failed to fetch member for sanction check", "guild_id", guildID, "user_id", userID, "error", err)
		} else {
			for _, roleID := range member.Roles {
				if slices.Contains(s.ExcludedRoleIDs, roleID) {
					return
				}
			}
		}
	}

	if err := m.session.GuildMemberRoleAdd(guildID, userID, s.RuinRoleID); err != nil {
		slog.Error("Failed to assign ruin role", "guild_id", guildID, "user_id", userID, "role_id", s.RuinRoleID, "error", err)
		return
	}
	metrics.SanctionsApplied.Inc()

	if s.RuinRoleDuration <= 0 {
		return
	}

	record := SanctionRecord{
		GuildID:   guildID,
		UserID:    userID,
		RoleID:    s.RuinRoleID,
		ExpiresAt: m.now().Add(time.Duration(s.RuinRoleDuration) * time.Second),
	}
	if err := m.store.CreateSanction(ctx, record); err != nil {
		slog.Error("Failed to record sanction", "guild_id", guildID, "user_id", userID, "error", err)
	}
}

// Sweep revokes every expired ruin-role grant and deletes its record. A
// failing revoke is logged and skipped; the record is dropped regardless so
// a departed member cannot wedge the sweep forever.
func (m *SanctionManager) Sweep(ctx context.Context) {
	start := m.now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	expired, err := m.store.ExpiredSanctions(ctx, m.now())
	if err != nil {
		slog.Error("Failed to list expired sanctions", "error", err)
		return
	}

	for _, record := range expired {
		if err := m.session.GuildMemberRoleRemove(record.GuildID, record.UserID, record.RoleID); err != nil {
			slog.Warn("Failed to revoke expired ruin role",
				"guild_id", record.GuildID, "user_id", record.UserID, "role_id", record.RoleID, "error", err)
		} else {
			metrics.SanctionsRevoked.Inc()
		}

		if err := m.store.DeleteSanction(ctx, record.GuildID, record.UserID, record.RoleID); err != nil {
			slog.Error("Failed to delete sanction record",
				"guild_id", record.GuildID, "user_id", record.UserID, "error", err)
		}
	}
}

// Sweeper runs the expiry sweep on a fixed interval. The host starts it
// after the gateway session is open.
type Sweeper struct {
	manager  *SanctionManager
	interval time.Duration
}

func NewSweeper(manager *SanctionManager, interval time.Duration) *Sweeper {
	return &Sweeper{manager: manager, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Sanction sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.manager.Sweep(ctx)
		}
	}
}
