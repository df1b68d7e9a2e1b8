package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/manukko/todos/internal/dbx"
	"github.com/manukko/todos/internal/server/migrations"
	"github.com/manukko/todos/internal/server/repositories/todos"
	"github.com/manukko/todos/internal/server/repositories/users"
)

// seam for tests
var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct {
	db *sql.DB
}

func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

// RunMigrations applies all embedded migrations that have not run yet.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}

	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresUserRepository(db)
}

func (m *PostgresRepositoryManager) Todos(db dbx.DBTX) todos.Repository {
	return todos.NewPostgresTodoRepository(db)
}
