// Package database opens the node's SQLite file and applies its schema.
//
// The connection uses WAL mode (when enabled) and a busy timeout, both set
// through the DSN. Migrations are additive and come from an fs.FS, normally
// the embedded migrations package:
//
//	db, err := database.Open(ctx, cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
