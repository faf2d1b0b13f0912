package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/events"
	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
	"github.com/yourorg/tourbook/pkg/config"
)

type stubBlobStore struct {
	uploadCalls int
}

func (s *stubBlobStore) UploadPrivate(ctx context.Context, data []byte, fileName string, kind domain.DocumentKind, ownerID string) (*domain.BlobUploadResult, error) {
	s.uploadCalls++
	id := fmt.Sprintf("private-documents/%s/%s_1", ownerID, kind)
	return &domain.BlobUploadResult{ObjectID: id, SecureURL: "https://res.cloudinary.com/test/image/upload/" + id}, nil
}

func (s *stubBlobStore) DeleteObject(ctx context.Context, objectID string) error { return nil }

func (s *stubBlobStore) BuildAccessURL(objectID string) string {
	return "https://res.cloudinary.com/test/image/upload/" + objectID
}

func (s *stubBlobStore) FetchObject(ctx context.Context, objectID string) ([]byte, string, error) {
	return []byte("%PDF-1.4"), "application/pdf", nil
}

type stubUserStore struct {
	user *domain.User
}

func (s *stubUserStore) GetUser(ctx context.Context, token string) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserStore) SetDocumentSlot(ctx context.Context, token, userID string, kind domain.DocumentKind, ref *domain.DocumentReference) error {
	switch kind {
	case domain.KindPassport:
		s.user.Passport = ref
	case domain.KindVisa:
		s.user.Visa = ref
	}
	return nil
}

type stubMediaStore struct{}

func (s *stubMediaStore) UploadMedia(ctx context.Context, token string, data []byte, fileName, mimeType string) (string, string, error) {
	return "file-1", "https://media.example.com/" + fileName, nil
}

func (s *stubMediaStore) DeleteMediaFile(ctx context.Context, token, fileID string) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func testCfg() *config.Config {
	return &config.Config{
		MaxUploadBytes: 5 * 1024 * 1024,
		AllowedMimeTypes: []string{
			"application/pdf", "image/jpeg", "image/png", "image/jpg",
		},
	}
}

func newDocumentService(users *stubUserStore) *service.DocumentService {
	return service.NewDocumentService(&stubBlobStore{}, users, &stubMediaStore{}, nil, events.NewHub(), testLogger(), testCfg())
}

// authed stamps an authenticated user and token on the request context the
// way the JWT middleware does.
func authed(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserContextKey{}, userID)
	ctx = context.WithValue(ctx, middleware.TokenContextKey{}, "tok")
	return r.WithContext(ctx)
}

func multipartUpload(t *testing.T, kind, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("documentType", kind); err != nil {
		t.Fatalf("WriteField failed: %v", err)
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("part write failed: %v", err)
	}
	mw.Close()
	return body, mw.FormDataContentType()
}

// TestUploadHandlerSuccess verifies the multipart happy path returns the
// success flag and both identifiers under their documented keys.
func TestUploadHandlerSuccess(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1"}}
	auditLog := audit.NewLogger(testLogger())
	h := NewUploadHandler(newDocumentService(users), auditLog, testLogger(), testCfg())

	body, contentType := multipartUpload(t, "passport", "pass.pdf", []byte("%PDF-1.4 test"))
	r := authed(httptest.NewRequest("POST", "/api/documents/upload", body), "u1")
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("Expected success true, got %v", resp["success"])
	}
	if id, _ := resp["fileId"].(string); id == "" {
		t.Errorf("Expected non-empty fileId, got %v", resp["fileId"])
	}
	if id, _ := resp["cloudinaryPublicId"].(string); id == "" {
		t.Errorf("Expected non-empty cloudinaryPublicId, got %v", resp["cloudinaryPublicId"])
	}
}

// TestUploadHandlerSniffsOctetStreamParts verifies that a part stamped
// application/octet-stream, as Go's multipart writer does, is accepted when
// the bytes themselves are a recognized document format.
func TestUploadHandlerSniffsOctetStreamParts(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1"}}
	h := NewUploadHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger(), testCfg())

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 16)...)
	body, contentType := multipartUpload(t, "visa", "visa.jpg", jpeg)
	r := authed(httptest.NewRequest("POST", "/api/documents/upload", body), "u1")
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

// TestUploadHandlerRejectsBadKind verifies a 400 with field errors.
func TestUploadHandlerRejectsBadKind(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1"}}
	h := NewUploadHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger(), testCfg())

	body, contentType := multipartUpload(t, "license", "pass.pdf", []byte("%PDF-1.4"))
	r := authed(httptest.NewRequest("POST", "/api/documents/upload", body), "u1")
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "documentType") {
		t.Errorf("Expected field error naming documentType, got %s", w.Body.String())
	}
}

// TestUploadHandlerRequiresAuth verifies a 401 without a user on context.
func TestUploadHandlerRequiresAuth(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1"}}
	h := NewUploadHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger(), testCfg())

	body, contentType := multipartUpload(t, "passport", "pass.pdf", []byte("%PDF-1.4"))
	r := httptest.NewRequest("POST", "/api/documents/upload", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
}

// TestViewHandlerOwnership verifies 403 for a foreign object and 200 for an
// owned one.
func TestViewHandlerOwnership(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1", Passport: &domain.DocumentReference{
		ReferenceFileID: "file-1",
		BlobObjectID:    "private-documents/u1/passport_1",
	}}}
	h := NewViewHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger())

	body, _ := json.Marshal(ViewRequest{PublicID: "private-documents/u2/passport_1"})
	r := authed(httptest.NewRequest("POST", "/api/documents/view", bytes.NewReader(body)), "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for foreign object, got %d", w.Code)
	}

	body, _ = json.Marshal(ViewRequest{PublicID: "private-documents/u1/passport_1"})
	r = authed(httptest.NewRequest("POST", "/api/documents/view", bytes.NewReader(body)), "u1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for owned object, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("Expected success true, got %v", resp["success"])
	}
	signed, _ := resp["signedUrl"].(string)
	if !strings.Contains(signed, "private-documents/u1/passport_1") {
		t.Errorf("Unexpected signedUrl: %q", signed)
	}
}

// TestDeleteHandlerEmptySlotIs404 verifies the status and body for a delete
// against an empty slot.
func TestDeleteHandlerEmptySlotIs404(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1"}}
	h := NewDeleteHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger())

	body, _ := json.Marshal(DeleteRequest{DocumentType: "visa", UserID: "u1"})
	r := authed(httptest.NewRequest("DELETE", "/api/documents/delete", bytes.NewReader(body)), "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp["success"] != false {
		t.Errorf("Expected success false, got %v", resp["success"])
	}
	if resp["error"] != "Document not found" {
		t.Errorf("Expected error %q, got %v", "Document not found", resp["error"])
	}
}

// TestDeleteHandlerSuccess verifies a filled slot deletes with the success
// envelope.
func TestDeleteHandlerSuccess(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1", Visa: &domain.DocumentReference{
		ReferenceFileID: "file-2",
		BlobObjectID:    "private-documents/u1/visa_1",
	}}}
	h := NewDeleteHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger())

	body, _ := json.Marshal(DeleteRequest{DocumentType: "visa", UserID: "u1"})
	r := authed(httptest.NewRequest("DELETE", "/api/documents/delete", bytes.NewReader(body)), "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("Expected success true, got %v", resp["success"])
	}
	if msg, _ := resp["message"].(string); msg == "" {
		t.Errorf("Expected non-empty message")
	}
	if users.user.Visa != nil {
		t.Errorf("Expected visa slot cleared")
	}
}

// TestDocumentsHandlerShape verifies the listing envelope with one filled
// slot and one null slot, keyed passport_document and visa_document.
func TestDocumentsHandlerShape(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1", Passport: &domain.DocumentReference{
		ReferenceFileID: "file-1",
		BlobObjectID:    "private-documents/u1/passport_1",
		FileName:        "pass.pdf",
		DisplayURL:      "https://media.example.com/pass.pdf",
		Status:          domain.StatusApproved,
	}}}
	h := NewDocumentsHandler(newDocumentService(users), testLogger())

	r := authed(httptest.NewRequest("GET", "/api/user/documents", nil), "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	for _, key := range []string{"success", "userId", "documents"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Missing %q key in %s", key, w.Body.String())
		}
	}
	var resp DocumentsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid response JSON: %v", err)
	}
	if !resp.Success || resp.UserID != "u1" {
		t.Errorf("Unexpected envelope: %+v", resp)
	}
	if resp.Documents.Visa != nil {
		t.Errorf("Expected null visa_document slot")
	}
	if resp.Documents.Passport == nil {
		t.Fatalf("Expected passport_document slot")
	}
	if resp.Documents.Passport.CloudinaryPublicID != "private-documents/u1/passport_1" ||
		resp.Documents.Passport.Status != "approved" || resp.Documents.Passport.FileName != "pass.pdf" {
		t.Errorf("Unexpected passport slot: %+v", resp.Documents.Passport)
	}
}

// TestProxyHandlerStreamsOwnedObject verifies headers and ownership on the
// proxy path.
func TestProxyHandlerStreamsOwnedObject(t *testing.T) {
	users := &stubUserStore{user: &domain.User{ID: "u1", Passport: &domain.DocumentReference{
		ReferenceFileID: "file-1",
		BlobObjectID:    "private-documents/u1/passport_1",
	}}}
	h := NewProxyHandler(newDocumentService(users), audit.NewLogger(testLogger()), testLogger())

	r := authed(httptest.NewRequest("GET", "/api/documents/proxy?publicId=private-documents/u1/passport_1", nil), "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Unexpected content type: %s", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "private, max-age=3600" {
		t.Errorf("Unexpected cache control: %s", cc)
	}

	r = authed(httptest.NewRequest("GET", "/api/documents/proxy?publicId=private-documents/u2/visa_1", nil), "u1")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for foreign object, got %d", w.Code)
	}
}

type stubMailer struct {
	sent int
}

func (s *stubMailer) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	s.sent++
	return "msg-1", nil
}

// TestQuoteHandlerValidation verifies a bad email yields 400 and zero sends.
func TestQuoteHandlerValidation(t *testing.T) {
	mailer := &stubMailer{}
	cfg := testCfg()
	cfg.AdminEmail = "reservas@example.com"
	cfg.SiteDomain = "example.com"
	h := NewQuoteHandler(service.NewQuoteService(mailer, testLogger(), cfg), testLogger())

	body, _ := json.Marshal(QuoteRequest{Name: "Ana", Email: "nope", People: 2, TourName: "Alhambra"})
	r := httptest.NewRequest("POST", "/api/quotes", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	if mailer.sent != 0 {
		t.Errorf("Invalid quote must not send email")
	}
}
