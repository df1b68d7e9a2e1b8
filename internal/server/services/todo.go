package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/manukko/todos/internal/common"
	"github.com/manukko/todos/internal/logging"
	sc "github.com/manukko/todos/internal/server/config"
	"github.com/manukko/todos/internal/server/models"
	"github.com/manukko/todos/internal/server/repositories/repomanager"
	"github.com/manukko/todos/internal/server/repositories/todos"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const presignValidity = 15 * time.Minute

// TodoService owns the task items of authenticated users, including their
// optional file attachments in object storage.
type TodoService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
	log    logging.Logger
}

func NewTodoService(db *sql.DB, repos repomanager.RepositoryManager, config *sc.Config, log logging.Logger) *TodoService {
	return &TodoService{db: db, repos: repos, config: config, log: log}
}

// Create adds a new item for the owner. The title must not be empty.
func (s *TodoService) Create(ctx context.Context, owner *models.User, title, description string) (*models.Todo, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", common.ErrorValidation)
	}
	return s.repos.Todos(s.db).Create(ctx, owner.ID, title, description)
}

// List returns all items of the owner in creation order.
func (s *TodoService) List(ctx context.Context, owner *models.User) ([]*models.Todo, error) {
	return s.repos.Todos(s.db).ListByOwner(ctx, owner.ID)
}

// Get returns one item of the owner.
func (s *TodoService) Get(ctx context.Context, owner *models.User, id int64) (*models.Todo, error) {
	return s.repos.Todos(s.db).GetByID(ctx, owner.ID, id)
}

// Search returns the owner's items with exactly the given title.
func (s *TodoService) Search(ctx context.Context, owner *models.User, title string) ([]*models.Todo, error) {
	return s.repos.Todos(s.db).FindByTitle(ctx, owner.ID, title)
}

// Update applies a partial update to one of the owner's items.
func (s *TodoService) Update(ctx context.Context, owner *models.User, id int64, params todos.UpdateParams) (*models.Todo, error) {
	if params.Title != nil && *params.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", common.ErrorValidation)
	}
	return s.repos.Todos(s.db).Update(ctx, owner.ID, id, params)
}

// Delete removes one of the owner's items.
func (s *TodoService) Delete(ctx context.Context, owner *models.User, id int64) error {
	return s.repos.Todos(s.db).Delete(ctx, owner.ID, id)
}

func randomStorageKey(ownerID int64) string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%d/%d/%d/%v", ownerID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *TodoService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// CreateAttachmentUploadURL reserves a storage key on one of the owner's
// items and returns a presigned PUT URL the client uploads the file to.
// Re-attaching replaces the previous key.
func (s *TodoService) CreateAttachmentUploadURL(ctx context.Context, owner *models.User, id int64) (string, error) {
	// make sure the item exists and belongs to the owner
	if _, err := s.repos.Todos(s.db).GetByID(ctx, owner.ID, id); err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey(owner.ID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}

	if err := s.repos.Todos(s.db).SetAttachmentKey(ctx, owner.ID, id, key); err != nil {
		return "", err
	}

	return req.URL, nil
}

// GetAttachmentDownloadURL returns a presigned GET URL for the attachment
// of one of the owner's items. Items without an attachment report not found.
func (s *TodoService) GetAttachmentDownloadURL(ctx context.Context, owner *models.User, id int64) (string, error) {
	td, err := s.repos.Todos(s.db).GetByID(ctx, owner.ID, id)
	if err != nil {
		return "", err
	}
	if td.AttachmentKey == "" {
		return "", common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &td.AttachmentKey,
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
