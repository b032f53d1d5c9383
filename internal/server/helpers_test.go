package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"labhub/internal/api"
	"labhub/internal/mediastore"
	"labhub/internal/metrics"
	"labhub/internal/qrcode"
	"labhub/internal/store"
)

const testBaseURL = "https://labs.example.test/static"

type testEnv struct {
	srv     *Server
	store   *store.Store
	media   *mediastore.Local
	qr      *qrcode.Generator
	metrics *metrics.Metrics
	dataDir string
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dataDir := filepath.Join(dir, "data")
	media, err := mediastore.NewLocal(dataDir, testBaseURL)
	if err != nil {
		t.Fatalf("new media store: %v", err)
	}
	qr, err := qrcode.NewGenerator(filepath.Join(dataDir, "lab_qr"), 0)
	if err != nil {
		t.Fatalf("new qr generator: %v", err)
	}
	m, err := metrics.New()
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	srv := New("127.0.0.1:0", Options{
		Store:   st,
		Media:   media,
		QR:      qr,
		Metrics: m,
		Uploads: UploadPolicy{MaxImages: 3},
	})
	return &testEnv{
		srv:     srv,
		store:   st,
		media:   media,
		qr:      qr,
		metrics: m,
		dataDir: dataDir,
		handler: srv.Handler(),
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

// adminToken registers an admin directly and logs in through the API.
func (e *testEnv) adminToken(t *testing.T, email string) string {
	t.Helper()
	_, err := e.srv.accountService.RegisterAdmin(context.Background(), api.AdminRegisterRequest{
		Name: "Ada", Surname: "Admin", Email: email, Password: "password-123",
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	return e.login(t, "/v1/admin/login", email, "password-123")
}

// studentToken registers a student through the API and logs in.
func (e *testEnv) studentToken(t *testing.T, email string) (string, int64) {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, "/v1/users/register", "", api.UserRegisterRequest{
		Name: "Sam", Surname: "Student", Email: email, Password: "password-123", Age: 21,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register student: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var user struct {
		Code int64 `json:"user_code"`
	}
	decodeBody(t, w, &user)
	return e.login(t, "/v1/users/login", email, "password-123"), user.Code
}

func (e *testEnv) login(t *testing.T, path, email, password string) string {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, path, "", api.LoginRequest{Email: email, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.LoginResponse
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected login token")
	}
	return resp.Token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func expectErrorCode(t *testing.T, w *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	var resp api.ErrorResponse
	decodeBody(t, w, &resp)
	if resp.ErrorCode != code {
		t.Fatalf("expected error_code %d, got %d (%s)", code, resp.ErrorCode, resp.Error)
	}
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string][]string, files []formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, value := range values {
			if err := mw.WriteField(key, value); err != nil {
				t.Fatalf("write field %s: %v", key, err)
			}
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func pngUpload(t *testing.T, name string) Upload {
	t.Helper()
	return Upload{Filename: name, Content: bytes.NewReader(pngBytes(t))}
}

func textUpload(name, content string) Upload {
	return Upload{Filename: name, Content: strings.NewReader(content)}
}

func imageRef(name string) string {
	return testBaseURL + "/lab_img/" + name
}
