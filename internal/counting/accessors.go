package counting

import (
	"context"
	"slices"
)

// State returns a read-only snapshot of a guild's counting state.
func (e *Engine) State(ctx context.Context, guildID string) (*GuildState, error) {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	return e.store.GetGuildState(ctx, guildID)
}

// UpdateSettings applies mutate to the guild's settings under the guild
// lock and persists the result. Returning an error from mutate aborts the
// update without touching the store.
func (e *Engine) UpdateSettings(ctx context.Context, guildID string, mutate func(*Settings) error) error {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.GetGuildState(ctx, guildID)
	if err != nil {
		return err
	}

	if err := mutate(&state.Settings); err != nil {
		return err
	}

	return e.store.UpdateSettings(ctx, guildID, state.Settings)
}

// AddGoal registers a new milestone. Duplicates are kept out and the
// pending set stays sorted.
func (e *Engine) AddGoal(ctx context.Context, guildID string, goal int64) (added bool, err error) {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.GetGuildState(ctx, guildID)
	if err != nil {
		return false, err
	}

	if slices.Contains(state.Goals, goal) {
		return false, nil
	}

	goals := append(slices.Clone(state.Goals), goal)
	slices.Sort(goals)
	return true, e.store.SetGoals(ctx, guildID, goals)
}

// RemoveGoal drops a pending milestone.
func (e *Engine) RemoveGoal(ctx context.Context, guildID string, goal int64) (removed bool, err error) {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	state, err := e.store.GetGuildState(ctx, guildID)
	if err != nil {
		return false, err
	}

	if !slices.Contains(state.Goals, goal) {
		return false, nil
	}

	return true, e.store.RemoveGoal(ctx, guildID, goal)
}

// ClearGoals drops every pending milestone.
func (e *Engine) ClearGoals(ctx context.Context, guildID string) error {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	return e.store.SetGoals(ctx, guildID, nil)
}

// SetCount manually sets the current count and clears the last counting
// user, so anyone may post the next value.
func (e *Engine) SetCount(ctx context.Context, guildID string, value int64) error {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	return e.store.SetCount(ctx, guildID, value)
}

// ResetGuild wipes all counting state and configuration for a guild.
func (e *Engine) ResetGuild(ctx context.Context, guildID string) error {
	lock := e.lockFor(guildID)
	lock.Lock()
	defer lock.Unlock()

	return e.store.ResetGuild(ctx, guildID)
}
