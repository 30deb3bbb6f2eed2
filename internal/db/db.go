// Package db opens the local session database. Sqlite serves development
// and tests; production points SESSION_DSN at Postgres.
package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sofratec/erp-app/internal/session"
)

// ConnectAndMigrate opens the DSN and applies the session-store migrations.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if isSQLite(dsn) {
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	} else {
		// Retry simple pour laisser le temps à Postgres de démarrer.
		for i := 0; i < 5; i++ {
			db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
			if err == nil {
				break
			}
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connexion BDD échouée : %w", err)
	}

	if err := db.AutoMigrate(&session.Session{}); err != nil {
		return nil, fmt.Errorf("migrations échouées : %w", err)
	}
	return db, nil
}

func isSQLite(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "file:") ||
		strings.HasSuffix(lower, ".db") ||
		lower == ":memory:"
}
