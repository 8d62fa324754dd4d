package mocks

import (
	"fmt"

	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// MockPostgresDAL stands in for the Postgres roster store on a developer
// machine (database_url: mock://<file>). It is the SQLite store underneath.
type MockPostgresDAL struct {
	dal.RosterDAL
	File string
}

// NewMockPostgresDAL opens the SQLite file backing the mock.
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	store, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, fmt.Errorf("mock postgres: %w", err)
	}
	logger.Info("Using MOCK Postgres roster store backed by SQLite", "file", sqliteFile)

	return &MockPostgresDAL{RosterDAL: store, File: sqliteFile}, nil
}
