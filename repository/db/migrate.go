package db

import (
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"taskhub/internal/domain/errors"
)

// Migration applies all pending schema migrations from migratePath.
func Migration(dbStr, migratePath string) error {
	if dbStr == "" || migratePath == "" {
		return errors.ErrDatabaseConnection
	}

	m, err := migrate.New("file://"+migratePath, dbStr)
	if err != nil {
		log.Println("[ERROR] failed to initialize migrations:", err)
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Println("[ERROR] failed to apply migrations:", err)
		return err
	}
	return nil
}
