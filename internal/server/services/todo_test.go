package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manukko/todos/internal/common"
	"github.com/manukko/todos/internal/logging"
	sc "github.com/manukko/todos/internal/server/config"
	"github.com/manukko/todos/internal/server/models"
	"github.com/manukko/todos/internal/server/repositories/todos"
)

type fakeTodoRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Todo
}

func newFakeTodoRepo() *fakeTodoRepo {
	return &fakeTodoRepo{nextID: 1, items: map[int64]*models.Todo{}}
}

func (r *fakeTodoRepo) Create(ctx context.Context, ownerID int64, title, description string) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	td := &models.Todo{
		ID: r.nextID, OwnerID: ownerID, Title: title, Description: description,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	r.items[td.ID] = td
	r.nextID++
	copied := *td
	return &copied, nil
}

func (r *fakeTodoRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Todo{}
	for id := int64(1); id < r.nextID; id++ {
		if td, ok := r.items[id]; ok && td.OwnerID == ownerID {
			copied := *td
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTodoRepo) GetByID(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	td, ok := r.items[id]
	if !ok || td.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	copied := *td
	return &copied, nil
}

func (r *fakeTodoRepo) FindByTitle(ctx context.Context, ownerID int64, title string) ([]*models.Todo, error) {
	all, _ := r.ListByOwner(ctx, ownerID)
	out := []*models.Todo{}
	for _, td := range all {
		if td.Title == title {
			out = append(out, td)
		}
	}
	return out, nil
}

func (r *fakeTodoRepo) Update(ctx context.Context, ownerID, id int64, params todos.UpdateParams) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	td, ok := r.items[id]
	if !ok || td.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	if params.Title != nil {
		td.Title = *params.Title
	}
	if params.Description != nil {
		td.Description = *params.Description
	}
	if params.Completed != nil {
		td.Completed = *params.Completed
	}
	copied := *td
	return &copied, nil
}

func (r *fakeTodoRepo) SetAttachmentKey(ctx context.Context, ownerID, id int64, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	td, ok := r.items[id]
	if !ok || td.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	td.AttachmentKey = key
	return nil
}

func (r *fakeTodoRepo) Delete(ctx context.Context, ownerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	td, ok := r.items[id]
	if !ok || td.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

func newTodoFixture(t *testing.T) (*TodoService, *fakeTodoRepo) {
	t.Helper()
	repo := newFakeTodoRepo()
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "attachments",
	}
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	svc := NewTodoService(nil, &fakeRepoManager{todoRepo: repo}, cfg, log)
	return svc, repo
}

func stubPresign(t *testing.T, putURL, getURL string) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: putURL}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: getURL + "/" + *in.Key}, nil
	}
}

func TestTodoCreateAndGet(t *testing.T) {
	svc, _ := newTodoFixture(t)
	ctx := context.Background()
	owner := &models.User{ID: 1, Username: "alice1"}

	td, err := svc.Create(ctx, owner, "buy milk", "two liters")
	require.NoError(t, err)
	assert.Equal(t, int64(1), td.ID)

	got, err := svc.Get(ctx, owner, td.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Title)

	_, err = svc.Create(ctx, owner, "", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestTodoOwnerIsolation(t *testing.T) {
	svc, _ := newTodoFixture(t)
	ctx := context.Background()
	alice := &models.User{ID: 1, Username: "alice1"}
	bob := &models.User{ID: 2, Username: "bobby1"}

	td, err := svc.Create(ctx, alice, "buy milk", "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, td.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, bob, td.ID), common.ErrorNotFound)

	items, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTodoSearch(t *testing.T) {
	svc, _ := newTodoFixture(t)
	ctx := context.Background()
	owner := &models.User{ID: 1, Username: "alice1"}

	_, err := svc.Create(ctx, owner, "buy milk", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, "walk dog", "")
	require.NoError(t, err)

	items, err := svc.Search(ctx, owner, "buy milk")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "buy milk", items[0].Title)
}

func TestTodoUpdate(t *testing.T) {
	svc, _ := newTodoFixture(t)
	ctx := context.Background()
	owner := &models.User{ID: 1, Username: "alice1"}

	td, err := svc.Create(ctx, owner, "buy milk", "")
	require.NoError(t, err)

	completed := true
	updated, err := svc.Update(ctx, owner, td.ID, todos.UpdateParams{Completed: &completed})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "buy milk", updated.Title)

	empty := ""
	_, err = svc.Update(ctx, owner, td.ID, todos.UpdateParams{Title: &empty})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestTodoAttachmentFlow(t *testing.T) {
	svc, repo := newTodoFixture(t)
	ctx := context.Background()
	owner := &models.User{ID: 1, Username: "alice1"}

	stubPresign(t, "http://minio/upload", "http://minio/download")

	td, err := svc.Create(ctx, owner, "buy milk", "")
	require.NoError(t, err)

	// no attachment yet
	_, err = svc.GetAttachmentDownloadURL(ctx, owner, td.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	url, err := svc.CreateAttachmentUploadURL(ctx, owner, td.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://minio/upload", url)

	stored, err := repo.GetByID(ctx, owner.ID, td.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.AttachmentKey)

	dl, err := svc.GetAttachmentDownloadURL(ctx, owner, td.ID)
	require.NoError(t, err)
	assert.Contains(t, dl, stored.AttachmentKey)

	// unknown items cannot take attachments
	_, err = svc.CreateAttachmentUploadURL(ctx, owner, 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
