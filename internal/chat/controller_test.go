package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diogo/agentdeck/internal/api"
	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
)

// streamHandler serves a fixed SSE body for every submission.
func streamHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			io.WriteString(w, "data: "+frame+"\n\n")
		}
	}
}

// waitPhase polls until the controller settles into want or the deadline
// passes.
func waitPhase(t *testing.T, c *Controller, want Phase) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never reached phase %v, stuck at %v (err: %v)", want, c.Phase(), c.LastError())
}

func TestSubmitAllocatesSequentialIDs(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"type": "content", "content": "first reply"}`,
	))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")

	if err := c.Submit(context.Background(), "first question", nil); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)

	if err := c.Submit(context.Background(), "second question", nil); err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)

	msgs := c.Transcript().Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	for i, wantID := range []int{1, 2, 3, 4} {
		if msgs[i].ID != wantID {
			t.Errorf("message %d has id %d, want %d", i, msgs[i].ID, wantID)
		}
	}
	if msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Errorf("role alternation broken: %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Content != "first reply" {
		t.Errorf("assistant content = %q, want %q", msgs[1].Content, "first reply")
	}
}

func TestSubmitAccumulatesDeltas(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"type": "content", "content": "Hel"}`,
		`{"type": "content", "content": "lo "}`,
		`{"type": "content", "content": "there"}`,
	))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "hi", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)

	msg, ok := c.Transcript().ByID(2)
	if !ok {
		t.Fatal("assistant message missing")
	}
	if msg.Content != "Hello there" {
		t.Errorf("content = %q, want %q", msg.Content, "Hello there")
	}
}

func TestReasoningFramesGoToTrace(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"type": "progress", "content": "Searching the data", "search_query": "revenue 2024", "icon": "search"}`,
		`{"type": "progress", "content": "Thinking", "icon": "brain"}`,
		`{"type": "progress", "content": "Step with bad icon", "icon": "teapot"}`,
		`{"type": "content", "content": "Answer"}`,
	))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "question", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)

	steps := c.Trace().Steps()
	if len(steps) != 3 {
		t.Fatalf("expected 3 trace steps, got %d", len(steps))
	}
	if steps[0].SearchQuery != "revenue 2024" || steps[0].Icon != models.IconSearch {
		t.Errorf("unexpected first step: %+v", steps[0])
	}
	if steps[2].Icon != models.DefaultIcon {
		t.Errorf("unknown icon should fall back to default, got %q", steps[2].Icon)
	}

	msg, _ := c.Transcript().ByID(2)
	if msg.Content != "Answer" {
		t.Errorf("reasoning frames must not leak into content, got %q", msg.Content)
	}
}

func TestTraceResetsBetweenTurns(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"type": "progress", "content": "working", "icon": "brain"}`,
		`{"type": "content", "content": "done"}`,
	))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")

	if err := c.Submit(context.Background(), "one", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)
	if c.Trace().Len() != 1 {
		t.Fatalf("expected 1 step after first turn, got %d", c.Trace().Len())
	}

	if err := c.Submit(context.Background(), "two", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)
	if got := c.Trace().Len(); got != 1 {
		t.Errorf("trace should hold only the new turn's steps, got %d", got)
	}
}

func TestComponentAndChartFrames(t *testing.T) {
	server := httptest.NewServer(streamHandler(
		`{"type": "content", "option": {"series": [1, 2, 3]}}`,
		`{"type": "content", "component": [{"type": "ui_event", "action": "create_component", "target": "t1", "component": {"id": "t1", "type": "table", "props": {"title": "A"}}}]}`,
		`{"type": "content", "component": [{"type": "ui_event", "action": "update_component", "target": "t1", "component": {"id": "t1", "type": "table", "props": {"title": "B"}}}]}`,
	))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "chart please", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseSuccess)

	msg, _ := c.Transcript().ByID(2)
	if !msg.HasChart() {
		t.Error("chart option was not applied")
	}
	if len(msg.Components) != 1 {
		t.Fatalf("expected 1 component after in-place update, got %d", len(msg.Components))
	}
	title := msg.Components[0].Component.Props
	if want := `{"title": "B"}`; string(title) != want {
		t.Errorf("component props = %s, want %s", title, want)
	}
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	c := NewController(api.NewClient("http://localhost:0"), "1")
	err := c.Submit(context.Background(), "   \n\t ", nil)
	if !errors.Is(err, apierrors.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if c.Transcript().Len() != 0 {
		t.Error("rejected submission must not touch the transcript")
	}
}

func TestSubmitRejectsConcurrent(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\": \"content\", \"content\": \"a\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "first", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for !c.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	err := c.Submit(context.Background(), "second", nil)
	if !errors.Is(err, apierrors.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if c.Transcript().Len() != 2 {
		t.Errorf("rejected submission must not append messages, got %d", c.Transcript().Len())
	}
}

func TestTransportFailureKeepsStreamedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\": \"content\", \"content\": \"partial \"}\n\n")
		w.(http.Flusher).Flush()

		// Drop the connection mid-stream.
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		conn.Close()
	}))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "question", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseFailed)

	if c.LastError() == nil {
		t.Error("failed turn should record an error")
	}
	msg, ok := c.Transcript().ByID(2)
	if !ok {
		t.Fatal("assistant message missing after failure")
	}
	if msg.Content != "partial " {
		t.Errorf("streamed content must survive the failure, got %q", msg.Content)
	}
	if c.Transcript().Len() != 2 {
		t.Errorf("no rollback expected, got %d messages", c.Transcript().Len())
	}
}

func TestSubmitRequestRejectedByBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "question", nil); err != nil {
		t.Fatalf("Submit itself should not fail synchronously: %v", err)
	}
	waitPhase(t, c, PhaseFailed)

	if got := apierrors.GetHTTPStatus(c.LastError()); got != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", got)
	}
}

func TestIdleWatchdogFailsSilentStream(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\": \"content\", \"content\": \"start\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewController(api.NewClient(server.URL), "1", WithIdleTimeout(50*time.Millisecond))
	if err := c.Submit(context.Background(), "question", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, c, PhaseFailed)

	if !errors.Is(c.LastError(), context.Canceled) {
		t.Errorf("expected context cancellation from the watchdog, got %v", c.LastError())
	}
	msg, _ := c.Transcript().ByID(2)
	if msg.Content != "start" {
		t.Errorf("content before the stall must be kept, got %q", msg.Content)
	}
}

func TestCancelAbortsInFlightTurn(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\": \"content\", \"content\": \"so far\"}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewController(api.NewClient(server.URL), "1")
	if err := c.Submit(context.Background(), "question", nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := c.Transcript().ByID(2); ok && msg.Content != "" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.Cancel()
	waitPhase(t, c, PhaseFailed)
}

func TestLoadSessionReplacesTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == models.EndpointMessages {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[
				{"id": 1, "type": "user", "content": "old question"},
				{"id": 2, "type": "assistant", "content": "old answer"}
			]`)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewController(api.NewClient(server.URL), "9")
	if err := c.LoadSession(context.Background(), "3"); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	if c.SessionID() != "3" {
		t.Errorf("session id = %q, want 3", c.SessionID())
	}
	if c.Transcript().Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", c.Transcript().Len())
	}
	if c.Transcript().NextID() != 3 {
		t.Errorf("NextID after load = %d, want 3", c.Transcript().NextID())
	}
}
