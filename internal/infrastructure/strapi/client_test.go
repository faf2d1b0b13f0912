package strapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/pkg/cache"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "service-token", cache.NewMemory(), time.Minute, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return srv, client
}

func TestRequestForwardsBearerToken(t *testing.T) {
	var gotAuth string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	if _, err := client.Request(context.Background(), "users/me", RequestOptions{BearerToken: "user-jwt"}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotAuth != "Bearer user-jwt" {
		t.Fatalf("expected user token forwarded verbatim, got %q", gotAuth)
	}
}

func TestRequestFallsBackToServiceToken(t *testing.T) {
	var gotAuth string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	if _, err := client.Request(context.Background(), "tours", RequestOptions{}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotAuth != "Bearer service-token" {
		t.Fatalf("expected service token, got %q", gotAuth)
	}
}

func TestRequestMapsNotFound(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"Not Found"}}`))
	})

	_, err := client.Request(context.Background(), "reservas/99", RequestOptions{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestSurfacesServiceErrorMessage(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
	})

	_, err := client.Request(context.Background(), "tours", RequestOptions{})
	if err == nil || !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("expected service message in error, got %v", err)
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestTaggedGetIsCachedUntilInvalidated(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":[]}`))
	})
	ctx := context.Background()

	opts := RequestOptions{CacheTags: []string{TagTours}}
	if _, err := client.Request(ctx, "tours", opts); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := client.Request(ctx, "tours", opts); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected second read served from cache, got %d remote calls", calls)
	}

	client.InvalidateTags(ctx, TagTours)
	if _, err := client.Request(ctx, "tours", opts); err != nil {
		t.Fatalf("third request failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected cache miss after invalidation, got %d remote calls", calls)
	}
}

func TestGetUserShapesDocumentSlots(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 7,
			"username": "maria",
			"email": "maria@example.com",
			"passportCloudinaryPublicId": "private-documents/7/passport_1700000000000",
			"Pasaporte": {"id": 42, "url": "/uploads/pass.pdf", "name": "pass.pdf", "createdAt": "2025-05-01T10:00:00.000Z"}
		}`))
	})

	user, err := client.GetUser(context.Background(), "user-jwt")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.ID != "7" {
		t.Fatalf("expected user id 7, got %q", user.ID)
	}
	if user.Passport == nil {
		t.Fatalf("expected passport slot populated")
	}
	if user.Passport.ReferenceFileID != "42" || user.Passport.BlobObjectID != "private-documents/7/passport_1700000000000" {
		t.Fatalf("unexpected passport reference: %+v", user.Passport)
	}
	if user.Passport.Status != domain.StatusPending {
		t.Fatalf("expected default pending status, got %q", user.Passport.Status)
	}
	if user.Visa != nil {
		t.Fatalf("expected empty visa slot, got %+v", user.Visa)
	}
}

func TestGetUserToleratesDegradedSlot(t *testing.T) {
	// Blob id present, media relation missing: degraded but present.
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7, "username": "maria", "visaCloudinaryPublicId": "private-documents/7/visa_1"}`))
	})

	user, err := client.GetUser(context.Background(), "user-jwt")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Visa == nil {
		t.Fatalf("expected degraded visa slot to read as present")
	}
	if !user.Visa.Degraded() {
		t.Fatalf("expected slot to report degraded")
	}
}

func TestUploadMediaParsesFileID(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart body: %v", err)
		}
		if _, _, err := r.FormFile("files"); err != nil {
			t.Errorf("expected files part: %v", err)
		}
		w.Write([]byte(`[{"id": 31, "url": "/uploads/pass.pdf", "name": "pass.pdf"}]`))
	})

	fileID, fileURL, err := client.UploadMedia(context.Background(), "user-jwt", []byte("%PDF-1.4"), "pass.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("UploadMedia failed: %v", err)
	}
	if fileID != "31" || fileURL != "/uploads/pass.pdf" {
		t.Fatalf("unexpected result: id=%q url=%q", fileID, fileURL)
	}
}

func TestSetDocumentSlotClearsBothFields(t *testing.T) {
	var gotBody string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{}`))
	})

	if err := client.SetDocumentSlot(context.Background(), "user-jwt", "7", domain.KindPassport, nil); err != nil {
		t.Fatalf("SetDocumentSlot failed: %v", err)
	}
	if !strings.Contains(gotBody, `"Pasaporte":null`) || !strings.Contains(gotBody, `"passportCloudinaryPublicId":null`) {
		t.Fatalf("expected both identifiers nulled, got %s", gotBody)
	}
}
