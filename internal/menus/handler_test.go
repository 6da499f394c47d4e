package menus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"coop-site/internal/shared/storage/object"
	"coop-site/internal/shared/storage/object/local"
)

type listBody struct {
	Success bool `json:"success"`
	Data    []struct {
		Week     int     `json:"week"`
		FileName *string `json:"fileName"`
		FilePath string  `json:"filePath"`
	} `json:"data"`
}

type uploadBody struct {
	Success  bool   `json:"success"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

func newTestRouter(svc *Service, repo Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, NewResolver(repo))
	h.RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r
}

func multipartRequest(t *testing.T, week, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if week != "" {
		if err := w.WriteField("week", week); err != nil {
			t.Fatalf("write week: %v", err)
		}
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/menu/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, uploadBody) {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var body uploadBody
	_ = json.Unmarshal(resp.Body.Bytes(), &body)
	return resp, body
}

func TestHandlerUploadThenList(t *testing.T) {
	dir := t.TempDir()
	repo := NewMemoryRepo()
	svc := NewService(local.NewUnique(dir, "/uploads"), repo, enabled())
	r := newTestRouter(svc, repo)

	resp, body := serve(r, multipartRequest(t, "week1", "menu1.pdf", "application/pdf", pdfBytes(2048)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !body.Success || !strings.HasPrefix(body.FilePath, "/uploads/menu1-") || body.Message == "" {
		t.Fatalf("unexpected upload body %+v", body)
	}
	svc.Wait()

	listResp := httptest.NewRecorder()
	r.ServeHTTP(listResp, httptest.NewRequest(http.MethodGet, "/api/menu", nil))
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.Code)
	}
	var list listBody
	if err := json.Unmarshal(listResp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if !list.Success || len(list.Data) != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	first := list.Data[0]
	if first.Week != 1 || first.FileName == nil || *first.FileName != "menu1.pdf" {
		t.Fatalf("unexpected week 1 entry %+v", first)
	}
	if !strings.HasPrefix(first.FilePath, body.FilePath+"?t=") {
		t.Fatalf("expected cache-busted recorded path, got %q", first.FilePath)
	}
	if list.Data[1].FileName != nil || list.Data[1].FilePath != "/menu/week2.pdf" {
		t.Fatalf("expected week 2 default, got %+v", list.Data[1])
	}
}

func TestHandlerListDegradesOnStoreError(t *testing.T) {
	repo := failingRepo{err: errors.New("connection refused")}
	r := newTestRouter(NewService(newFakeBackend(), repo, enabled()), repo)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/menu", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list listBody
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !list.Success || len(list.Data) != 2 {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	for i, week := range []int{1, 2} {
		entry := list.Data[i]
		if entry.Week != week || entry.FileName != nil || entry.FilePath != fmt.Sprintf("/menu/week%d.pdf", week) {
			t.Fatalf("unexpected placeholder %+v", entry)
		}
	}
	if !strings.Contains(resp.Body.String(), `"fileName":null`) {
		t.Fatalf("expected explicit null fileName, got %s", resp.Body.String())
	}
}

// uploadOf defers building a multipart upload until the subtest runs.
func uploadOf(week, fileName, contentType string, data []byte) func(*testing.T) *http.Request {
	return func(t *testing.T) *http.Request {
		return multipartRequest(t, week, fileName, contentType, data)
	}
}

func TestHandlerUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "exact limit accepted",
			req:      uploadOf("1", "a.pdf", "application/pdf", pdfBytes(object.MaxObjectBytes)),
			wantCode: http.StatusOK,
		},
		{
			name:     "one byte over",
			req:      uploadOf("1", "a.pdf", "application/pdf", pdfBytes(object.MaxObjectBytes+1)),
			wantCode: http.StatusBadRequest,
			wantErr:  "too_large",
		},
		{
			name:     "octet stream",
			req:      uploadOf("1", "a.pdf", "application/octet-stream", pdfBytes(10)),
			wantCode: http.StatusBadRequest,
			wantErr:  "unsupported_type",
		},
		{
			name:     "week three",
			req:      uploadOf("3", "a.pdf", "application/pdf", pdfBytes(10)),
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_week",
		},
		{
			name:     "week zero",
			req:      uploadOf("0", "a.pdf", "application/pdf", pdfBytes(10)),
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_week",
		},
		{
			name:     "missing file",
			req:      uploadOf("1", "", "", nil),
			wantCode: http.StatusBadRequest,
			wantErr:  "missing_field",
		},
		{
			name:     "missing week",
			req:      uploadOf("", "a.pdf", "application/pdf", pdfBytes(10)),
			wantCode: http.StatusBadRequest,
			wantErr:  "missing_field",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/menu/upload", strings.NewReader(`{"week":1}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "missing_field",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewMemoryRepo()
			svc := NewService(local.NewFixed(t.TempDir(), "/menu"), repo, enabled())
			resp, body := serve(newTestRouter(svc, repo), tc.req(t))
			if resp.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, resp.Code, resp.Body.String())
			}
			if tc.wantErr != "" {
				if body.Success || body.Code != tc.wantErr || body.Message == "" {
					t.Fatalf("unexpected error body %+v", body)
				}
				if slots, _ := repo.List(context.Background()); len(slots) != 0 {
					t.Fatalf("expected no record after rejection")
				}
			}
		})
	}
}

func TestHandlerOversizedRequestRejected(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(newFakeBackend(), repo, enabled())
	resp, body := serve(newTestRouter(svc, repo), multipartRequest(t, "1", "a.pdf", "application/pdf", pdfBytes(maxRequestBytes+1)))
	if resp.Code != http.StatusBadRequest || body.Success {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandlerUploadsDisabled(t *testing.T) {
	repo := NewMemoryRepo()
	backend := newFakeBackend()
	svc := NewService(backend, repo, Options{UploadsEnabled: false, CleanupTimeout: time.Second})
	resp, body := serve(newTestRouter(svc, repo), multipartRequest(t, "1", "a.pdf", "application/pdf", pdfBytes(10)))
	if resp.Code != http.StatusForbidden || body.Code != "uploads_disabled" {
		t.Fatalf("expected 403 uploads_disabled, got %d %+v", resp.Code, body)
	}
	if len(backend.stored) != 0 {
		t.Fatalf("expected no storage writes")
	}
}

func TestHandlerStorageFailureHidesCause(t *testing.T) {
	repo := NewMemoryRepo()
	backend := newFakeBackend()
	backend.storeErr = object.FromRemote("put", errors.New("secret-bucket-name access denied"))
	resp, body := serve(newTestRouter(NewService(backend, repo, enabled()), repo), multipartRequest(t, "2", "a.pdf", "application/pdf", pdfBytes(10)))
	if resp.Code != http.StatusInternalServerError || body.Code != "storage_failure" {
		t.Fatalf("expected 500 storage_failure, got %d %+v", resp.Code, body)
	}
	if strings.Contains(resp.Body.String(), "secret-bucket-name") {
		t.Fatalf("cause leaked to client: %s", resp.Body.String())
	}
}

func TestHandlerRecordFailure(t *testing.T) {
	repo := upsertFailRepo{NewMemoryRepo()}
	resp, body := serve(newTestRouter(NewService(newFakeBackend(), repo, enabled()), repo), multipartRequest(t, "1", "a.pdf", "application/pdf", pdfBytes(10)))
	if resp.Code != http.StatusInternalServerError || body.Code != "record_failure" {
		t.Fatalf("expected 500 record_failure, got %d %+v", resp.Code, body)
	}
}
