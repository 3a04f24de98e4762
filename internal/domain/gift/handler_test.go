package gift

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxroom/voxroom-api/internal/middleware"
)

func asCaller(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), userID, false)))
		})
	}
}

func TestSendHandlerMapsInsufficientCoins(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := NewHandler(svc).Routes(asCaller("alice"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"receiverId":"bob","giftId":"rose"}`)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"code":"INSUFFICIENT_COINS"`) || !strings.Contains(rec.Body.String(), "Insufficient coins") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestSendHandlerRejectsImpersonation(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := NewHandler(svc).Routes(asCaller("alice"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"senderId":"bob","receiverId":"alice","giftId":"rose"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSendHandlerSucceeds(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	if _, _, err := wallets.CreateWallet(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	r := NewHandler(svc).Routes(asCaller("alice"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"receiverId":"bob","giftId":"rose"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "transactionId") {
		t.Fatalf("expected transaction id, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCatalogIsPublic(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := NewHandler(svc).Routes(func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("catalog must not require auth")
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"rocket"`) {
		t.Fatalf("unexpected catalog response %d: %s", rec.Code, rec.Body.String())
	}
}
