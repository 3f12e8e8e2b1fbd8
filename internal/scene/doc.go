// Package scene provides the lighting preset catalog for Lumen Station.
//
// A scene is a named RGBW+brightness target. The catalog keeps scenes in
// an explicit position order so station controls (next/previous, boot
// auto-apply) can address them by index the same way the wall panel
// carousel does.
//
// # Key Types
//
//   - Scene: Named channel preset with a catalog position
//   - Repository: Persistence interface (CRUD, index lookups, reorder)
//   - SQLiteRepository: SQLite-backed implementation
//
// # Ordering
//
// Position is repository-owned. Create appends, Reorder renumbers
// densely, Delete leaves gaps that index-based reads skip over. Callers
// never write positions directly.
//
// # Usage
//
//	repo := scene.NewSQLiteRepository(db)
//	if err := repo.EnsureDefault(ctx); err != nil {
//	    return err
//	}
//
//	first, err := repo.First(ctx)
package scene
