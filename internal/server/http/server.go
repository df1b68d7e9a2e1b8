// Package http exposes the service over a JSON REST API built on gin.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manukko/todos/internal/logging"
)

// Server wires the handlers into a gin engine and manages the lifecycle of
// the underlying http.Server.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	log    logging.Logger
}

func NewServer(addr string, sessions SessionManager, items TodoManager, log logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}

	ah := &AuthHandler{sessions: sessions, log: log.With("handler", "auth")}
	th := &TodoHandler{items: items, log: log.With("handler", "todos")}

	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h1>Welcome to Manukko Todos App!</h1>"))
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/register", ah.Register)
		v1.POST("/login", ah.Login)
		v1.POST("/refresh", ah.Refresh)
		v1.GET("/verify_email/:token", ah.VerifyEmail)
		v1.POST("/request_password_reset", ah.RequestPasswordReset)
		v1.POST("/reset_password/:token", ah.ResetPassword)

		authed := v1.Group("")
		authed.Use(RequireAuth(sessions))
		{
			authed.POST("/logout", ah.Logout)
			authed.GET("/whoami", ah.WhoAmI)
			authed.DELETE("/users/me", ah.DeleteAccount)

			authed.POST("/todos", th.Create)
			authed.GET("/todos", th.List)
			authed.GET("/todos/search", th.Search)
			authed.GET("/todos/:id", th.Get)
			authed.PUT("/todos/:id", th.Update)
			authed.DELETE("/todos/:id", th.Delete)
			authed.POST("/todos/:id/attachment", th.CreateAttachmentUploadURL)
			authed.GET("/todos/:id/attachment", th.GetAttachmentDownloadURL)
		}
	}

	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info(ctx, "http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.Info(shutdownCtx, "http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
