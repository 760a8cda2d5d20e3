// Package engine orchestrates the availability inputs, the resolver, and the batch editor.
//
// GetGrid fetches the session catalog, the booking aggregate, and the overrides of a range
// concurrently and resolves them into a Grid. All three reads must succeed, otherwise no
// grid is produced and the error is joined with availability.ErrFetchFailed.
//
// SaveEdit re-reads the affected range with strong consistency, re-validates the edit
// against it, builds the override rows, persists them as one batch, and re-resolves the
// affected range. A failed save leaves the edit session Editing, so the caller can retry
// with the buffer intact. There is no automatic retry.
//
// Usage:
//
//	eng, _ := engine.NewEngine(store, store, store,
//		engine.WithLockEnforcement(availability.LockBlocking),
//		engine.WithLogger(slog.Default()),
//	)
//
//	grid, _ := eng.GetMonthGrid(ctx, 2026, time.November)
//	edit, _ := eng.BeginSingleDayEdit(ctx, grid, date)
//	_ = edit.SetClosed(availability.EveningSession, true)
//	_ = edit.SetReason(availability.EveningSession, "Private Event")
//	fresh, err := eng.SaveEdit(ctx, edit)
package engine
