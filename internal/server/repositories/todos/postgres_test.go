package todos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manukko/todos/internal/common"
)

func todoRows(t *testing.T, titles ...string) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "completed", "attachment_key", "created_at", "updated_at"})
	for i, title := range titles {
		rows.AddRow(int64(i+1), int64(1), title, "", false, "", now, now)
	}
	return rows
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO todos")).
		WithArgs(int64(1), "buy milk", "two liters").
		WillReturnRows(todoRows(t, "buy milk"))

	repo := NewPostgresTodoRepository(db)
	td, err := repo.Create(context.Background(), 1, "buy milk", "two liters")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", td.Title)
	assert.Equal(t, int64(1), td.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM todos WHERE owner_id = $1 ORDER BY id")).
		WithArgs(int64(1)).
		WillReturnRows(todoRows(t, "buy milk", "walk dog"))

	repo := NewPostgresTodoRepository(db)
	items, err := repo.ListByOwner(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "walk dog", items[1].Title)
}

func TestListByOwner_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM todos WHERE owner_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(todoRows(t))

	repo := NewPostgresTodoRepository(db)
	items, err := repo.ListByOwner(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestGetByID_OwnerScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND id = $2")).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(todoRows(t))

	repo := NewPostgresTodoRepository(db)
	_, err = repo.GetByID(context.Background(), 2, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByTitle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND title = $2")).
		WithArgs(int64(1), "buy milk").
		WillReturnRows(todoRows(t, "buy milk"))

	repo := NewPostgresTodoRepository(db)
	items, err := repo.FindByTitle(context.Background(), 1, "buy milk")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "buy milk", items[0].Title)
}

func TestUpdate_PartialFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	completed := true
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE todos SET")).
		WithArgs(nil, nil, completed, int64(1), int64(1)).
		WillReturnRows(todoRows(t, "buy milk"))

	repo := NewPostgresTodoRepository(db)
	td, err := repo.Update(context.Background(), 1, 1, UpdateParams{Completed: &completed})
	require.NoError(t, err)
	assert.Equal(t, "buy milk", td.Title)
}

func TestUpdate_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	title := "new title"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE todos SET")).
		WithArgs(title, nil, nil, int64(1), int64(99)).
		WillReturnRows(todoRows(t))

	repo := NewPostgresTodoRepository(db)
	_, err = repo.Update(context.Background(), 1, 99, UpdateParams{Title: &title})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetAttachmentKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE todos SET attachment_key = $1")).
		WithArgs("attachments/1/1", int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresTodoRepository(db)
	assert.NoError(t, repo.SetAttachmentKey(context.Background(), 1, 1, "attachments/1/1"))
}

func TestDelete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM todos")).
		WithArgs(int64(1), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresTodoRepository(db)
	assert.ErrorIs(t, repo.Delete(context.Background(), 1, 99), common.ErrorNotFound)
}
