package commands

import (
	"database/sql"

	"github.com/teranos/floorcheck/config"
	"github.com/teranos/floorcheck/db"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
)

// openDatabase opens and migrates the configured database. A non-empty
// dbPath overrides the config.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		dbPath = cfg.Database.Path
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}

	return database, nil
}
