package handlers

import (
	"errors"
	"net/http"

	"github.com/forumbase/notifyd/internal/models"
	"github.com/forumbase/notifyd/internal/notifications"
	"github.com/forumbase/notifyd/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	engine  *notifications.Engine
	indexes repositories.IndexRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(engine *notifications.Engine, indexes repositories.IndexRepository) *NotificationHandler {
	return &NotificationHandler{engine: engine, indexes: indexes}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/:id/unread", h.MarkAsUnread)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// RegisterInternalRoutes registers the internal create+push endpoint used by
// other services.
func (h *NotificationHandler) RegisterInternalRoutes(g *echo.Group) {
	g.POST("/notifications", h.CreateNotification)
	g.DELETE("/notifications", h.RescindNotifications)
}

// GetNotifications returns the recipient's merged notification list
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	inbox, err := h.engine.Inbox(c.Request().Context(), currentUserID, 50)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": inbox,
		},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.indexes.UnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks a notification (and its merged siblings) as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.engine.MarkRead(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return engineError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// MarkAsUnread moves a notification back to the unread index
func (h *NotificationHandler) MarkAsUnread(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.engine.MarkUnread(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return engineError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// MarkAllAsRead marks the most recent unread notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.engine.MarkAllRead(c.Request().Context(), currentUserID); err != nil {
		return engineError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// CreateNotification creates a record and schedules delivery (internal API)
func (h *NotificationHandler) CreateNotification(c echo.Context) error {
	var req models.CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.engine.Create(c.Request().Context(), req.ToNotification())
	if err != nil {
		return engineError(err)
	}
	if created == nil {
		// suppressed by the idempotency guard or vetoed by a hook
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"created": false}})
	}

	if len(req.Groups) > 0 {
		h.engine.PushGroups(created, req.Groups)
	}
	if len(req.RecipientIDs) > 0 {
		h.engine.Push(created, req.RecipientIDs)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data":    echo.Map{"created": true, "notification": created},
	})
}

// RescindNotifications deletes records whose triggering action was undone
// (internal API)
func (h *NotificationHandler) RescindNotifications(c echo.Context) error {
	var req struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.engine.Rescind(c.Request().Context(), req.IDs); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"rescinded": len(req.IDs)}})
}

// engineError maps engine sentinel errors to HTTP status codes
func engineError(err error) error {
	switch {
	case errors.Is(err, notifications.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, notifications.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
