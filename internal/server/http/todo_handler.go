package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/manukko/todos/internal/common"
	"github.com/manukko/todos/internal/logging"
	"github.com/manukko/todos/internal/server/repositories/todos"
)

type TodoHandler struct {
	items TodoManager
	log   logging.Logger
}

type createTodoRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func todoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid todo id"})
		return 0, false
	}
	return id, true
}

func (h *TodoHandler) respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "todo not found"})
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error(c.Request.Context(), action+" failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed"})
	}
}

func (h *TodoHandler) Create(c *gin.Context) {
	user := currentUser(c)

	var req createTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	td, err := h.items.Create(c.Request.Context(), user, req.Title, req.Description)
	if err != nil {
		h.respondError(c, err, "creating todo")
		return
	}

	c.JSON(http.StatusCreated, toTodoResponse(td))
}

func (h *TodoHandler) List(c *gin.Context) {
	user := currentUser(c)

	items, err := h.items.List(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err, "listing todos")
		return
	}

	c.JSON(http.StatusOK, toTodoResponses(items))
}

func (h *TodoHandler) Get(c *gin.Context) {
	user := currentUser(c)

	id, ok := todoID(c)
	if !ok {
		return
	}

	td, err := h.items.Get(c.Request.Context(), user, id)
	if err != nil {
		h.respondError(c, err, "getting todo")
		return
	}

	c.JSON(http.StatusOK, toTodoResponse(td))
}

func (h *TodoHandler) Search(c *gin.Context) {
	user := currentUser(c)

	title := c.Query("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title query parameter is required"})
		return
	}

	items, err := h.items.Search(c.Request.Context(), user, title)
	if err != nil {
		h.respondError(c, err, "searching todos")
		return
	}

	c.JSON(http.StatusOK, toTodoResponses(items))
}

func (h *TodoHandler) Update(c *gin.Context) {
	user := currentUser(c)

	id, ok := todoID(c)
	if !ok {
		return
	}

	var req updateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	td, err := h.items.Update(c.Request.Context(), user, id, todos.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.respondError(c, err, "updating todo")
		return
	}

	c.JSON(http.StatusOK, toTodoResponse(td))
}

func (h *TodoHandler) Delete(c *gin.Context) {
	user := currentUser(c)

	id, ok := todoID(c)
	if !ok {
		return
	}

	if err := h.items.Delete(c.Request.Context(), user, id); err != nil {
		h.respondError(c, err, "deleting todo")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "todo deleted"})
}

func (h *TodoHandler) CreateAttachmentUploadURL(c *gin.Context) {
	user := currentUser(c)

	id, ok := todoID(c)
	if !ok {
		return
	}

	url, err := h.items.CreateAttachmentUploadURL(c.Request.Context(), user, id)
	if err != nil {
		h.respondError(c, err, "creating attachment upload url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"upload_url": url})
}

func (h *TodoHandler) GetAttachmentDownloadURL(c *gin.Context) {
	user := currentUser(c)

	id, ok := todoID(c)
	if !ok {
		return
	}

	url, err := h.items.GetAttachmentDownloadURL(c.Request.Context(), user, id)
	if err != nil {
		h.respondError(c, err, "creating attachment download url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"download_url": url})
}
