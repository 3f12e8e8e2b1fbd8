// Package database provides SQLite connectivity for the Lumen Station.
//
// The database holds the two pieces of state that survive a restart:
// the scene catalogue and the runtime settings. This package manages:
//   - Connection setup with WAL mode and busy timeout pragmas
//   - Embedded schema migrations applied at boot
//   - Health checks for the API health endpoint
//   - Connection lifecycle (single pooled connection, SQLite's writer model)
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations live in the top-level migrations directory and are
// embedded into the binary. They are additive-only:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Never DROP or RENAME columns in a point release
//   - Each migration file has both .up.sql and .down.sql
package database
