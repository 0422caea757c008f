package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/config"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/service"
)

func newCallbackRouter(svc *service.MineruService) *gin.Engine {
	handler := NewCallbackHandler(svc)
	router := gin.New()
	router.POST("/callback", handler.HandleCallback)
	return router
}

func signedBody(t *testing.T, content string) []byte {
	t.Helper()
	hash := sha256.Sum256([]byte("uid-1" + "seed-1" + content))
	body, err := json.Marshal(map[string]string{
		"checksum": hex.EncodeToString(hash[:]),
		"content":  content,
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func postCallback(router *gin.Engine, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCallbackHandlerHandleCallback(t *testing.T) {
	svc := service.NewMineruService(&config.MineruConfig{UID: "uid-1", Seed: "seed-1"})
	router := newCallbackRouter(svc)

	results, release := svc.Await("42")
	defer release()

	tests := []struct {
		name           string
		body           []byte
		expectedStatus int
	}{
		{
			name:           "running task is acknowledged",
			body:           signedBody(t, `{"task_id":"task-1","data_id":"42","state":"running"}`),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "done callback",
			body:           signedBody(t, `{"task_id":"task-1","data_id":"42","state":"done","full_zip_url":"https://cdn.test/r.zip"}`),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "no waiting import",
			body:           signedBody(t, `{"task_id":"task-2","data_id":"non-existent","state":"done"}`),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid content format",
			body:           signedBody(t, "invalid json"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad checksum",
			body:           []byte(`{"checksum":"deadbeef","content":"{\"data_id\":\"42\",\"state\":\"done\"}"}`),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postCallback(router, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}

	select {
	case result := <-results:
		if result.FullZipURL != "https://cdn.test/r.zip" {
			t.Errorf("Unexpected result delivered: %+v", result)
		}
	default:
		t.Error("Expected the done callback to reach the waiting import")
	}
}

func TestCallbackHandlerInvalidRequest(t *testing.T) {
	router := newCallbackRouter(service.NewMineruService(&config.MineruConfig{}))

	w := postCallback(router, []byte("invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestCallbackHandlerFailedState(t *testing.T) {
	svc := service.NewMineruService(&config.MineruConfig{UID: "uid-1", Seed: "seed-1"})
	router := newCallbackRouter(svc)
	results, release := svc.Await("7")
	defer release()

	w := postCallback(router, signedBody(t, `{"task_id":"task-7","data_id":"7","state":"failed","err_msg":"extraction failed"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	result := <-results
	if result.State != service.TaskStateFailed {
		t.Errorf("Expected state '%s', got '%s'", service.TaskStateFailed, result.State)
	}
	if result.ErrorMsg != "extraction failed" {
		t.Errorf("Expected error msg 'extraction failed', got '%s'", result.ErrorMsg)
	}
}
