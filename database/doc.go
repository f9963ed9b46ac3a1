// Package database provides a unified interface for connecting to grant backends.
//
// Grants record which subjects may read which path prefixes; they back the
// "grants" permission policy.
//
// # Supported Backends
//
//   - PostgreSQL: Production-ready backend using pgx connection pool
//   - SQLite: Lightweight backend suitable for development and single-node deployments
//
// # Usage
//
//	cfg := database.Config{
//	    Type:        "sqlite",
//	    DSN:         "privatemedia.db",
//	    AutoMigrate: true,
//	    Tables:      privatemedia.Tables{Grants: "privatemedia_grants"},
//	}
//
//	db, err := database.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	checker := privatemedia.NewGrantPermissions(db.GetRepo())
//
// # Subpackages
//
//   - database/postgres: PostgreSQL implementation using pgx
//   - database/sqlite: SQLite implementation using modernc.org/sqlite
package database
