package repomanager

import (
	"context"

	"github.com/manukko/todos/internal/dbx"
	"github.com/manukko/todos/internal/server/repositories/todos"
	"github.com/manukko/todos/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a particular DB handle,
// which lets services run several repo calls inside one transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users(db dbx.DBTX) users.Repository
	Todos(db dbx.DBTX) todos.Repository
}
