package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
)

func TestSessionsNewestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != models.EndpointSessions {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"session_id": 1, "title": "first"},
			{"session_id": 3, "title": "third"},
			{"session_id": 2, "title": "second"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	sessions, err := client.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != 3 || sessions[1].ID != 2 || sessions[2].ID != 1 {
		t.Errorf("sessions not newest first: %d, %d, %d", sessions[0].ID, sessions[1].ID, sessions[2].ID)
	}
}

func TestMessagesPassesSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("session_id"); got != "7" {
			t.Errorf("session_id = %q, want 7", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id": 1, "type": "user", "content": "hi"},
			{"id": 2, "type": "assistant", "content": "hello"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	messages, err := client.Messages(context.Background(), "7")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].Role != models.RoleAssistant {
		t.Errorf("second message role = %q, want assistant", messages[1].Role)
	}
}

func TestDeleteSession(t *testing.T) {
	deleted := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q, want DELETE", r.Method)
		}
		if got := r.URL.Query().Get("session_id"); got != "4" {
			t.Errorf("session_id = %q, want 4", got)
		}
		deleted = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.DeleteSession(context.Background(), "4"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if !deleted {
		t.Error("delete handler was never reached")
	}
}

func TestNextSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"session_id": 2}, {"session_id": 9}, {"session_id": 5}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	next, err := client.NextSessionID(context.Background())
	if err != nil {
		t.Fatalf("NextSessionID failed: %v", err)
	}
	if next != "10" {
		t.Errorf("next session id = %q, want 10", next)
	}
}

func TestNextSessionIDEmptyBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	next, err := client.NextSessionID(context.Background())
	if err != nil {
		t.Fatalf("NextSessionID failed: %v", err)
	}
	if next != "1" {
		t.Errorf("next session id = %q, want 1", next)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status": "ok"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed against healthy backend: %v", err)
	}
}

func TestHealthUnreachable(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	client := NewClient(server.URL)
	err := client.Health(context.Background())
	if !errors.Is(err, apierrors.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestHealthDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status": "starting"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Health(context.Background())
	if !errors.Is(err, apierrors.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSubmitJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != models.EndpointAgent {
			t.Errorf("path = %q, want %q", r.URL.Path, models.EndpointAgent)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("accept = %q, want text/event-stream", accept)
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if payload["input"] != "hello" || payload["session_id"] != "3" {
			t.Errorf("unexpected payload: %v", payload)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\": \"content\", \"content\": \"hi\"}\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	body, err := client.Submit(context.Background(), "hello", "3", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if !strings.Contains(string(raw), "data:") {
		t.Errorf("stream body missing data frame: %q", raw)
	}
}

func TestSubmitMultipartBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("content type = %q, want multipart/form-data", r.Header.Get("Content-Type"))
		}

		reader := multipart.NewReader(r.Body, params["boundary"])
		fields := make(map[string]string)
		var fileNames []string
		var fileBodies []string
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("failed to read part: %v", err)
			}
			data, _ := io.ReadAll(part)
			if part.FileName() != "" {
				if part.FormName() != "files" {
					t.Errorf("file part name = %q, want files", part.FormName())
				}
				fileNames = append(fileNames, part.FileName())
				fileBodies = append(fileBodies, string(data))
			} else {
				fields[part.FormName()] = string(data)
			}
		}

		if fields["input"] != "analyze this" || fields["session_id"] != "5" {
			t.Errorf("unexpected form fields: %v", fields)
		}
		if len(fileNames) != 2 || fileNames[0] != "a.csv" || fileNames[1] != "b.csv" {
			t.Errorf("unexpected file names: %v", fileNames)
		}
		if fileBodies[0] != "col1,col2" {
			t.Errorf("unexpected file body: %q", fileBodies[0])
		}

		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer server.Close()

	files := []*Attachment{
		{Name: "a.csv", Reader: bytes.NewReader([]byte("col1,col2"))},
		{Name: "b.csv", Reader: bytes.NewReader([]byte("x,y"))},
	}

	client := NewClient(server.URL)
	body, err := client.Submit(context.Background(), "analyze this", "5", files)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	body.Close()
}

func TestSubmitErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Submit(context.Background(), "hello", "1", nil)
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if got := apierrors.GetHTTPStatus(err); got != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got)
	}
	if !strings.Contains(err.Error(), "agent crashed") {
		t.Errorf("error should carry the upstream message: %v", err)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	client := NewClient(server.URL)
	_, err := client.Submit(context.Background(), "hello", "1", nil)
	if !errors.Is(err, apierrors.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestAttachmentFromFileMissing(t *testing.T) {
	if _, err := AttachmentFromFile("/nonexistent/path/data.csv"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
