package events

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Trident14/EMP-backend/apperror"
	"github.com/Trident14/EMP-backend/auth"
)

// Handler handles HTTP requests for events.
type Handler struct {
	service *EventService
}

// NewHandler creates a new event Handler.
func NewHandler(service *EventService) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers the routes that require no authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.handleList)
}

// RegisterProtectedRoutes registers the routes that sit behind the JWT
// middleware.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/mine", h.handleMine)
	r.Get("/registrations", h.handleRegistrations)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/attend", h.handleJoin)
	r.Delete("/{id}/attend", h.handleLeave)
}

// callerID extracts the authenticated user's id from the request context.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("not authenticated", nil))
		return "", false
	}
	return claims.UserID, true
}

// handleList godoc
// @Summary List Events
// @Description Lists all events with creator username and attendee count.
// @Tags Events
// @Produce json
// @Success 200 {array} events.EventSummary
// @Router /events [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, summaries)
}

// handleCreate godoc
// @Summary Create Event
// @Description Creates a new event owned by the caller. Guests may not create events.
// @Tags Events
// @Accept json
// @Produce json
// @Param eventBody body events.CreateEventRequest true "Event details"
// @Success 201 {object} events.EventResponse
// @Failure 403 {object} apperror.ErrorResponse "Forbidden - guest account"
// @Failure 409 {object} apperror.ErrorResponse "Conflict - duplicate event"
// @Security BearerAuth
// @Router /events [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
		return
	}
	defer r.Body.Close()

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusCreated, resp)
}

// handleMine godoc
// @Summary My Events
// @Description Lists events created by the caller.
// @Tags Events
// @Produce json
// @Success 200 {array} events.EventSummary
// @Security BearerAuth
// @Router /events/mine [get]
func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	summaries, err := h.service.Mine(r.Context(), userID)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, summaries)
}

// handleRegistrations godoc
// @Summary My Registrations
// @Description Lists events the caller is attending.
// @Tags Events
// @Produce json
// @Success 200 {array} events.EventSummary
// @Security BearerAuth
// @Router /events/registrations [get]
func (h *Handler) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	summaries, err := h.service.Registrations(r.Context(), userID)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, summaries)
}

// handleUpdate godoc
// @Summary Update Event
// @Description Updates event fields. Creator only.
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param eventBody body events.UpdateEventRequest true "Fields to update"
// @Success 200 {object} events.Event
// @Failure 403 {object} apperror.ErrorResponse "Forbidden - not the creator"
// @Failure 404 {object} apperror.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
		return
	}
	defer r.Body.Close()

	event, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userID, req)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, event)
}

// handleDelete godoc
// @Summary Delete Event
// @Description Deletes an event. Creator only.
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} auth.MessageResponse
// @Failure 403 {object} apperror.ErrorResponse "Forbidden - not the creator"
// @Failure 404 {object} apperror.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id} [delete]
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, auth.MessageResponse{Message: "Event deleted successfully"})
}

// handleJoin godoc
// @Summary Join Event
// @Description Adds the caller to the event's attendee set.
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} events.EventResponse
// @Failure 400 {object} apperror.ErrorResponse "Already attending"
// @Failure 404 {object} apperror.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id}/attend [post]
func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Join(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, resp)
}

// handleLeave godoc
// @Summary Leave Event
// @Description Removes the caller from the event's attendee set.
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} events.EventResponse
// @Failure 400 {object} apperror.ErrorResponse "Not attending"
// @Failure 404 {object} apperror.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id}/attend [delete]
func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Leave(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, resp)
}
