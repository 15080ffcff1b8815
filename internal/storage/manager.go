// Package storage wires the relational store: connection handle, embedded
// migrations and the per-entity repositories. The manager is constructed
// once by the application and passed by reference into every component that
// needs persistence; there is no package-level connection registry.
package storage

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gaiasync/internal/storage/records"
	"github.com/dmitrijs2005/gaiasync/internal/storage/regions"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Regions() regions.Repository
	Records() records.Repository
}
