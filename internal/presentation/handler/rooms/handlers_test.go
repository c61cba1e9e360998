package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/registry"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) (*chi.Mux, *registry.Registry) {
	t.Helper()
	return newTestRouterWithAudit(t, nil)
}

func newTestRouterWithAudit(t *testing.T, audit domain.RoomAuditRepository) (*chi.Mux, *registry.Registry) {
	t.Helper()

	reg := registry.New(registry.Options{Capacity: 100, IdleRoomExpiry: time.Hour})
	h := NewHandler(reg, nil, audit, logging.NewNopLogger())

	r := chi.NewRouter()
	r.Get("/v1/rooms", h.ListRoomsHandler)
	r.Post("/v1/rooms", h.CreateRoomHandler)
	r.Get("/v1/rooms/{roomId}", h.GetRoomHandler)
	r.Get("/v1/rooms/{roomId}/audit", h.GetRoomAuditHandler)
	return r, reg
}

func TestCreateRoomHandler(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(`{"roomId":"admin-room","createdBy":"admin-user"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp roomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RoomID != "admin-room" {
		t.Errorf("roomId = %q, want admin-room", resp.RoomID)
	}
	if resp.CreatedBy != "admin-user" {
		t.Errorf("createdBy = %q, want admin-user", resp.CreatedBy)
	}
	if resp.MemberCount != 0 {
		t.Errorf("memberCount = %d, want 0 before any socket joins", resp.MemberCount)
	}
	if resp.CreatedAt == 0 {
		t.Error("createdAt = 0, want unix millis")
	}
}

func TestCreateRoomHandler_Duplicate(t *testing.T) {
	router, reg := newTestRouter(t)
	if _, err := reg.Create("admin-room", "admin-user"); err != nil {
		t.Fatalf("seed Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(`{"roomId":"admin-room","createdBy":"someone"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCreateRoomHandler_Validation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing roomId", `{"createdBy":"admin-user"}`},
		{"missing createdBy", `{"roomId":"admin-room"}`},
		{"bad roomId", `{"roomId":"has spaces","createdBy":"admin-user"}`},
		{"unknown field", `{"roomId":"r","createdBy":"u","bogus":true}`},
		{"not json", `hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/rooms", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestListRoomsHandler(t *testing.T) {
	router, reg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	// Clients check for a bare array, so an empty registry must yield [].
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list body = %q, want []", got)
	}

	if _, err := reg.Create("room-a", "userA"); err != nil {
		t.Fatalf("seed Create() error = %v", err)
	}
	if _, err := reg.Create("room-b", "userB"); err != nil {
		t.Fatalf("seed Create() error = %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))

	var rooms []roomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("len(rooms) = %d, want 2", len(rooms))
	}
}

func TestGetRoomHandler(t *testing.T) {
	router, reg := newTestRouter(t)
	if _, err := reg.Create("admin-room", "admin-user"); err != nil {
		t.Fatalf("seed Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/admin-room", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp roomResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RoomID != "admin-room" {
		t.Errorf("roomId = %q, want admin-room", resp.RoomID)
	}
}

func TestGetRoomHandler_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

type fakeAuditRepo struct {
	entries   []domain.RoomAuditLog
	gotRoomID string
	gotLimit  int
}

func (f *fakeAuditRepo) Log(context.Context, *domain.RoomAuditLog) error { return nil }

func (f *fakeAuditRepo) GetByRoomID(_ context.Context, roomID string, limit int) ([]domain.RoomAuditLog, error) {
	f.gotRoomID = roomID
	f.gotLimit = limit
	return f.entries, nil
}

func (f *fakeAuditRepo) DeleteOlderThan(context.Context, time.Time) error { return nil }

func (f *fakeAuditRepo) EnsureIndexes(context.Context) error { return nil }

func TestGetRoomAuditHandler(t *testing.T) {
	audit := &fakeAuditRepo{entries: []domain.RoomAuditLog{
		*domain.NewRoomCreatedLog("admin-room", "admin-user"),
		*domain.NewRoomDeletedLog("admin-room", "idle_expired"),
	}}
	router, _ := newTestRouterWithAudit(t, audit)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/admin-room/audit?limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if audit.gotRoomID != "admin-room" || audit.gotLimit != 10 {
		t.Errorf("repo called with (%q, %d), want (admin-room, 10)", audit.gotRoomID, audit.gotLimit)
	}

	var entries []domain.RoomAuditLog
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].EventType != domain.EventRoomCreated {
		t.Errorf("entries[0].EventType = %q, want %q", entries[0].EventType, domain.EventRoomCreated)
	}
}

func TestGetRoomAuditHandler_EmptyTrail(t *testing.T) {
	router, _ := newTestRouterWithAudit(t, &fakeAuditRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms/ghost/audit", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty trail body = %q, want []", got)
	}
}

func TestGetRoomAuditHandler_BadLimit(t *testing.T) {
	router, _ := newTestRouterWithAudit(t, &fakeAuditRepo{})

	for _, limit := range []string{"0", "-1", "1001", "abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms/admin-room/audit?limit="+limit, nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestGetRoomAuditHandler_Disabled(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms/admin-room/audit", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d when no audit store is configured", rec.Code, http.StatusNotFound)
	}
}
