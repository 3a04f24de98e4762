package contest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxroom/voxroom-api/internal/domain/room"
	"github.com/voxroom/voxroom-api/internal/middleware"
)

func asCaller(userID string, admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), userID, admin)))
		})
	}
}

func TestTickHandlerOnRoomsRouter(t *testing.T) {
	f := newFixture(t)
	r, err := f.rooms.CreateRoom(context.Background(), "host", "show")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	h := NewHandler(f.contest)

	guest := room.NewHandler(f.rooms).Routes(asCaller("guest", false), h.Mount)
	rec := httptest.NewRecorder()
	guest.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+r.RoomID+"/host-minute", nil))
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), `"code":"NOT_HOST"`) {
		t.Fatalf("expected 403 NOT_HOST, got %d: %s", rec.Code, rec.Body.String())
	}

	host := room.NewHandler(f.rooms).Routes(asCaller("host", false), h.Mount)
	rec = httptest.NewRecorder()
	host.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/"+r.RoomID+"/host-minute", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"minutes":1`) {
		t.Fatalf("expected one minute, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDistributeHandlerRefusesSecondRun(t *testing.T) {
	f := newFixture(t)
	f.hostMinutes(t, "host", 2)

	admin := asCaller("admin", true)(NewHandler(f.contest).AdminRoutes())
	body := `{"weekKey":"2026-W07"}`

	rec := httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/distribute", strings.NewReader(body)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"distributed":1`) {
		t.Fatalf("unexpected first response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	admin.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/distribute", strings.NewReader(body)))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "ALREADY_DISTRIBUTED") {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}
