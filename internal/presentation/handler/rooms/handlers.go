package rooms

import (
	"errors"
	"net/http"
	"strconv"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/json"
	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/metrics"
	"castrelay/internal/infrastructure/registry"
	"castrelay/internal/infrastructure/relay"
	"castrelay/internal/infrastructure/validate"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	registry *registry.Registry
	notifier relay.LifecycleNotifier    // optional
	audit    domain.RoomAuditRepository // optional
	logger   logging.Logger

	validRoomID validate.Validator
	validUserID validate.Validator
}

func NewHandler(reg *registry.Registry, notifier relay.LifecycleNotifier, audit domain.RoomAuditRepository, logger logging.Logger) *Handler {
	return &Handler{
		registry:    reg,
		notifier:    notifier,
		audit:       audit,
		logger:      logger,
		validRoomID: validate.RoomID(),
		validUserID: validate.UserID(),
	}
}

// ListRoomsHandler returns all live rooms, newest first, as a bare array.
// An empty registry yields [] rather than null.
func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.List()

	rooms := make([]roomResponse, 0, len(summaries))
	for _, s := range summaries {
		rooms = append(rooms, newRoomResponse(s))
	}

	json.Write(w, http.StatusOK, rooms)
}

// CreateRoomHandler creates an empty room owned by the requested user. The
// room has no members until someone joins over the socket.
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.validRoomID(req.RoomID); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if err := h.validUserID(req.CreatedBy); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	summary, err := h.registry.Create(req.RoomID, req.CreatedBy)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomAlreadyExists):
			json.WriteError(w, http.StatusConflict, err, "Room already exists")
		case errors.Is(err, domain.ErrRegistryFull):
			json.WriteError(w, http.StatusServiceUnavailable, err, "Registry is at capacity")
		default:
			h.logger.Error(logging.Registry, logging.ExternalService, "failed to create room", map[logging.ExtraKey]any{
				logging.RoomID:       req.RoomID,
				logging.ErrorMessage: err.Error(),
			})
			json.WriteInternalError(w, err)
		}
		return
	}
	metrics.RoomsCreated.WithLabelValues("http").Inc()

	if h.notifier != nil {
		h.notifier.RoomCreated(summary.RoomID, summary.CreatedBy)
	}

	json.Write(w, http.StatusCreated, newRoomResponse(summary))
}

// GetRoomHandler returns a single room by id.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	summary, err := h.registry.Get(roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, newRoomResponse(summary))
}

// GetRoomAuditHandler returns a room's lifecycle audit entries, newest first.
// The room itself may already be gone; the trail outlives it.
func (h *Handler) GetRoomAuditHandler(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		json.WriteError(w, http.StatusNotFound, errors.New("audit log is not enabled"), "Audit log is not enabled")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			json.WriteValidationError(w, errors.New("limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	entries, err := h.audit.GetByRoomID(r.Context(), roomID, limit)
	if err != nil {
		h.logger.Error(logging.Mongo, logging.ExternalService, "failed to read audit log", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	if entries == nil {
		entries = []domain.RoomAuditLog{}
	}
	json.Write(w, http.StatusOK, entries)
}
