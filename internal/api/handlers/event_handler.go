package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/services"
)

// Client-facing messages
const (
	MessageEventFetched      = "Event Fetched Successfully"
	MessageConfigurationFail = "Database Configuration Error"
	MessageFetchFailed       = "Failed to fetch event"
)

// EventQuerier looks up events by slug
type EventQuerier interface {
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
}

// EventResponse is the body of a successful lookup
type EventResponse struct {
	Message string        `json:"message"`
	Event   *models.Event `json:"event"`
}

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	events  EventQuerier
	verbose bool
}

// NewEventHandler creates a new event handler. Lookup failures are logged with
// their cause only when verbose is set.
func NewEventHandler(events EventQuerier, verbose bool) *EventHandler {
	return &EventHandler{
		events:  events,
		verbose: verbose,
	}
}

// HandleGetEvent returns the event stored under the :slug parameter
func (h *EventHandler) HandleGetEvent(c *gin.Context) {
	slug := c.Param("slug")

	event, err := h.events.GetEventBySlug(c.Request.Context(), slug)
	if err != nil {
		if h.verbose {
			log.Error().
				Err(err).
				Str("slug", slug).
				Str("request_id", c.GetString("X-Request-ID")).
				Msg("Error fetching event by slug")
		}
		WriteError(c, lookupError(slug, err))
		return
	}

	c.JSON(http.StatusOK, EventResponse{
		Message: MessageEventFetched,
		Event:   event,
	})
}

func lookupError(slug string, err error) *Error {
	switch {
	case apperrors.IsValidation(err):
		return NewError(services.MessageInvalidSlug, ErrInvalidRequest.StatusCode, ErrInvalidRequest.Code)
	case errors.Is(err, apperrors.ErrNotFound):
		return NewError(services.NotFoundMessage(slug), http.StatusNotFound, ErrNotFound.Code)
	case apperrors.IsConfiguration(err):
		return NewError(MessageConfigurationFail, http.StatusInternalServerError, "CONFIGURATION_ERROR")
	default:
		return NewError(MessageFetchFailed, http.StatusInternalServerError, ErrInternalServer.Code)
	}
}

// RegisterRoutes registers the handler's routes
func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/events/:slug", h.HandleGetEvent)
}
