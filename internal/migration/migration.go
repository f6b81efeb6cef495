// Package migration brings the schema up on startup so a fresh
// deployment is usable without manual steps. Postgres gets versioned
// SQL migrations; other dialects fall back to AutoMigrate.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	fulfillmentdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	inventorydomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

func RunPostgres(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	return nil
}

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&catalogdomain.Item{},
		&inventorydomain.Unit{},
		&orderdomain.Order{},
		&riskdomain.SettingsRecord{},
		&riskdomain.DenylistEntry{},
		&riskdomain.Assessment{},
		&fulfillmentdomain.Delivery{},
		&auditdomain.AuditLog{},
	)
}
