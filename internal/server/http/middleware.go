package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manukko/todos/internal/server/models"
	"github.com/manukko/todos/internal/server/repositories/todos"
	"github.com/manukko/todos/internal/server/services"
)

// SessionManager is the slice of the session service the transport needs.
type SessionManager interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, renewalToken string) (string, error)
	Logout(ctx context.Context, accessToken string) error
	ResolveIdentity(ctx context.Context, accessToken string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error
	DeleteAccount(ctx context.Context, user *models.User, password string) error
}

// TodoManager is the slice of the todo service the transport needs.
type TodoManager interface {
	Create(ctx context.Context, owner *models.User, title, description string) (*models.Todo, error)
	List(ctx context.Context, owner *models.User) ([]*models.Todo, error)
	Get(ctx context.Context, owner *models.User, id int64) (*models.Todo, error)
	Search(ctx context.Context, owner *models.User, title string) ([]*models.Todo, error)
	Update(ctx context.Context, owner *models.User, id int64, params todos.UpdateParams) (*models.Todo, error)
	Delete(ctx context.Context, owner *models.User, id int64) error
	CreateAttachmentUploadURL(ctx context.Context, owner *models.User, id int64) (string, error)
	GetAttachmentDownloadURL(ctx context.Context, owner *models.User, id int64) (string, error)
}

const (
	ctxUserKey  = "currentUser"
	ctxTokenKey = "accessToken"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// RequireAuth validates the bearer access token and stores the resolved
// account on the request context. Missing, invalid and revoked tokens all
// get the same 401.
func RequireAuth(sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := sessions.ResolveIdentity(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxTokenKey, token)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	u, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := u.(*models.User)
	return user
}

// userResponse is the public projection of an account.
type userResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
	}
}

// todoResponse is the public projection of a todo item.
type todoResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Completed     bool      `json:"completed"`
	HasAttachment bool      `json:"has_attachment"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toTodoResponse(td *models.Todo) todoResponse {
	return todoResponse{
		ID:            td.ID,
		Title:         td.Title,
		Description:   td.Description,
		Completed:     td.Completed,
		HasAttachment: td.AttachmentKey != "",
		CreatedAt:     td.CreatedAt,
		UpdatedAt:     td.UpdatedAt,
	}
}

func toTodoResponses(items []*models.Todo) []todoResponse {
	out := make([]todoResponse, 0, len(items))
	for _, td := range items {
		out = append(out, toTodoResponse(td))
	}
	return out
}
