package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	synccore "github.com/swapstay/swapsync/internal/sync"
	apperrors "github.com/swapstay/swapsync/pkg/errors"
	"github.com/swapstay/swapsync/pkg/response"
)

// NotificationHandler exposes the notification store and the toast lifecycle.
type NotificationHandler struct {
	core *synccore.Core
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(core *synccore.Core) *NotificationHandler {
	return &NotificationHandler{core: core}
}

// List returns notifications, most recent first.
// GET /api/v1/notifications?limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	store := h.core.Notifications()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	response.SuccessWithMeta(c, http.StatusOK, store.List(limit), &response.Meta{
		HasMore: store.HasMore(),
		Total:   store.Len(),
		Unread:  store.Unread(),
	})
}

// LoadMore fetches the next page of history from the backend.
// POST /api/v1/notifications/load-more
func (h *NotificationHandler) LoadMore(c *gin.Context) {
	store := h.core.Notifications()
	if err := store.LoadMore(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, store.List(0), &response.Meta{
		HasMore: store.HasMore(),
		Total:   store.Len(),
		Unread:  store.Unread(),
	})
}

// MarkRead marks one notification as read.
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if !h.core.Notifications().MarkRead(id) {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// MarkAllRead marks every notification as read.
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	changed := h.core.Notifications().MarkAllRead()
	response.Success(c, http.StatusOK, gin.H{"marked": changed})
}

// Toasts returns the active toasts, oldest first.
// GET /api/v1/toasts
func (h *NotificationHandler) Toasts(c *gin.Context) {
	response.Success(c, http.StatusOK, h.core.Toasts().Active())
}

// DismissToast removes a toast ahead of its auto-dismiss timer.
// DELETE /api/v1/toasts/:id
func (h *NotificationHandler) DismissToast(c *gin.Context) {
	id := c.Param("id")
	if !h.core.Toasts().Dismiss(id) {
		response.Error(c, apperrors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}
