package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/manukko/todos/internal/common"
	"github.com/manukko/todos/internal/dbx"
	"github.com/manukko/todos/internal/server/models"
)

type PostgresTodoRepository struct {
	db dbx.DBTX
}

func NewPostgresTodoRepository(db dbx.DBTX) *PostgresTodoRepository {
	return &PostgresTodoRepository{db: db}
}

const todoColumns = "id, owner_id, title, description, completed, attachment_key, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var td models.Todo
	err := row.Scan(&td.ID, &td.OwnerID, &td.Title, &td.Description, &td.Completed, &td.AttachmentKey, &td.CreatedAt, &td.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("scanning todo: %w", err)
	}
	return &td, nil
}

func collectTodos(rows *sql.Rows) ([]*models.Todo, error) {
	defer rows.Close()

	items := []*models.Todo{}
	for rows.Next() {
		td, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, td)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating todos: %w", err)
	}
	return items, nil
}

func (r *PostgresTodoRepository) Create(ctx context.Context, ownerID int64, title, description string) (*models.Todo, error) {
	query := `INSERT INTO todos (owner_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING ` + todoColumns

	return scanTodo(r.db.QueryRowContext(ctx, query, ownerID, title, description))
}

func (r *PostgresTodoRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE owner_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return collectTodos(rows)
}

func (r *PostgresTodoRepository) GetByID(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE owner_id = $1 AND id = $2`
	return scanTodo(r.db.QueryRowContext(ctx, query, ownerID, id))
}

func (r *PostgresTodoRepository) FindByTitle(ctx context.Context, ownerID int64, title string) ([]*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE owner_id = $1 AND title = $2 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, ownerID, title)
	if err != nil {
		return nil, fmt.Errorf("searching todos: %w", err)
	}
	return collectTodos(rows)
}

func (r *PostgresTodoRepository) Update(ctx context.Context, ownerID, id int64, params UpdateParams) (*models.Todo, error) {
	query := `UPDATE todos SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			completed = COALESCE($3, completed),
			updated_at = NOW()
		WHERE owner_id = $4 AND id = $5
		RETURNING ` + todoColumns

	return scanTodo(r.db.QueryRowContext(ctx, query, params.Title, params.Description, params.Completed, ownerID, id))
}

func (r *PostgresTodoRepository) SetAttachmentKey(ctx context.Context, ownerID, id int64, key string) error {
	query := `UPDATE todos SET attachment_key = $1, updated_at = NOW() WHERE owner_id = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, key, ownerID, id)
	if err != nil {
		return fmt.Errorf("setting attachment key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresTodoRepository) Delete(ctx context.Context, ownerID, id int64) error {
	query := `DELETE FROM todos WHERE owner_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
