package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gaiasync/internal/storage/migrations"
	"github.com/dmitrijs2005/gaiasync/internal/storage/records"
	"github.com/dmitrijs2005/gaiasync/internal/storage/regions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db      *sql.DB
	regions regions.Repository
	records records.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Regions() regions.Repository {
	return m.regions
}

func (m *PostgresRepositoryManager) Records() records.Repository {
	return m.records
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:      db,
		regions: regions.NewPostgresRepository(db),
		records: records.NewPostgresRepository(db),
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
