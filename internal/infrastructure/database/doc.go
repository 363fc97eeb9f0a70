// Package database provides the SQLite store behind the Pushgate admin
// audit trail.
//
// Connections are opened with WAL mode and a busy timeout, and schema
// changes are applied from embedded *.up.sql files:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Registry, channel and presence state is never stored here; it lives in
// memory only.
package database
