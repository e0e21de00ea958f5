package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AltairaLabs/run-tools-mcp/internal/config"
)

const eventTimeout = 2 * time.Second

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// countRecords counts log records at level in a JSON log buffer
func countRecords(t *testing.T, buf *bytes.Buffer, level string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("Invalid log line %q: %v", line, err)
		}
		if record["level"] == level {
			out = append(out, record)
		}
	}
	return out
}

func TestStartWithoutAccessToken(t *testing.T) {
	logger, buf := newBufferLogger()
	srv := New(config.Config{Port: 0}, logger)

	err := srv.Start(context.Background())
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential, got %v", err)
	}
	if srv.Addr() != nil {
		t.Errorf("Expected no listener, got %v", srv.Addr())
	}

	errs := countRecords(t, buf, "ERROR")
	if len(errs) != 1 {
		t.Fatalf("Expected exactly 1 error record, got %d", len(errs))
	}
	if errs[0]["msg"] != config.ErrMissingAccessToken {
		t.Errorf("Unexpected error message %q", errs[0]["msg"])
	}
	if len(countRecords(t, buf, "INFO")) != 0 {
		t.Error("Expected no running message")
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop after failed start should be a no-op, got %v", err)
	}
}

func TestServeStdioWithoutAccessToken(t *testing.T) {
	logger, buf := newBufferLogger()
	srv := New(config.Config{}, logger)

	if err := srv.ServeStdio(); !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential, got %v", err)
	}
	if n := len(countRecords(t, buf, "ERROR")); n != 1 {
		t.Errorf("Expected exactly 1 error record, got %d", n)
	}
}

func TestStartStop(t *testing.T) {
	logger, buf := newBufferLogger()
	srv := New(config.Config{Port: 0, AccessToken: "tr_dev_test"}, logger)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}

	base := "http://" + srv.Addr().String()
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Second Stop should be a no-op, got %v", err)
	}

	if _, err := http.Get(base + "/healthz"); err == nil {
		t.Error("Expected connection to fail after Stop")
	}

	logs := buf.String()
	if strings.Count(logs, config.MsgServerRunning) != 1 {
		t.Error("Expected one running message")
	}
	if strings.Count(logs, config.MsgServerStopped) != 1 {
		t.Error("Expected one stopped message")
	}
	if strings.Contains(logs, "tr_dev_test") {
		t.Error("Access token must never be logged")
	}
}

func TestStopClosesOpenStreams(t *testing.T) {
	logger, _ := newBufferLogger()
	srv := New(config.Config{Port: 0, AccessToken: "tok"}, logger)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	client := openStream(t, "http://"+srv.Addr().String())
	client.next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	client.expectClosed(t)
}

type sseEvent struct {
	name string
	data string
}

type sseClient struct {
	base     string
	endpoint string
	events   chan sseEvent
	nextID   atomic.Int64
}

func openStream(t *testing.T, base string) *sseClient {
	t.Helper()
	resp, err := http.Get(base + "/sse")
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	c := &sseClient{base: base, events: make(chan sseEvent, 16)}
	go func() {
		defer close(c.events)
		reader := bufio.NewReader(resp.Body)
		var ev sseEvent
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSuffix(line, "\n")
			switch {
			case line == "":
				if ev.name != "" {
					c.events <- ev
				}
				ev = sseEvent{}
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data += strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return c
}

func (c *sseClient) next(t *testing.T) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-c.events:
		if !ok {
			t.Fatal("Stream closed while waiting for event")
		}
		if ev.name == "endpoint" {
			c.endpoint = ev.data
		}
		return ev
	case <-time.After(eventTimeout):
		t.Fatal("Timed out waiting for event")
	}
	return sseEvent{}
}

func (c *sseClient) expectClosed(t *testing.T) {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case _, ok := <-c.events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Expected stream to close")
		}
	}
}

// call posts a request and waits for its response on the stream
func (c *sseClient) call(t *testing.T, method string, params any) map[string]any {
	t.Helper()
	id := c.nextID.Add(1)
	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})

	resp, err := http.Post(c.base+c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}

	ev := c.next(t)
	var msg map[string]any
	if err := json.Unmarshal([]byte(ev.data), &msg); err != nil {
		t.Fatalf("Invalid message %q: %v", ev.data, err)
	}
	if msg["id"] != float64(id) {
		t.Fatalf("Expected response to request %d, got %v", id, msg["id"])
	}
	return msg
}

func toolText(t *testing.T, msg map[string]any) (string, bool) {
	t.Helper()
	result, ok := msg["result"].(map[string]any)
	if !ok {
		t.Fatalf("Expected a result, got %v", msg)
	}
	content := result["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("Expected 1 content block, got %d", len(content))
	}
	block := content[0].(map[string]any)
	isError, _ := result["isError"].(bool)
	return block["text"].(string), isError
}

func TestEndToEnd(t *testing.T) {
	var backendCalls atomic.Int32
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/tasks/my-task/trigger":
			fmt.Fprint(w, `{"id":"run_123"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/runs":
			fmt.Fprint(w, `{"data":[],"pagination":{"next":null}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"not found"}`)
		}
	}))
	defer backendSrv.Close()

	logger, logs := newBufferLogger()
	srv := New(config.Config{
		Port:         0,
		APIURL:       backendSrv.URL,
		AccessToken:  "tok",
		ProjectRef:   "proj_ref",
		DashboardURL: "https://dash.example/",
	}, logger)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Stop(context.Background())

	client := openStream(t, "http://"+srv.Addr().String())
	if ev := client.next(t); ev.name != "endpoint" {
		t.Fatalf("Expected endpoint event, got %q", ev.name)
	}

	t.Run("initialize", func(t *testing.T) {
		msg := client.call(t, "initialize", map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		})
		info := msg["result"].(map[string]any)["serverInfo"].(map[string]any)
		if info["name"] != config.DefaultServerName {
			t.Errorf("Expected server name %s, got %v", config.DefaultServerName, info["name"])
		}
	})

	t.Run("tools/list", func(t *testing.T) {
		msg := client.call(t, "tools/list", map[string]any{})
		list := msg["result"].(map[string]any)["tools"].([]any)
		names := make(map[string]bool)
		for _, tool := range list {
			names[tool.(map[string]any)["name"].(string)] = true
		}
		for _, name := range config.AllTools() {
			if !names[name] {
				t.Errorf("Expected tool %s to be listed", name)
			}
		}
	})

	t.Run("trigger-task", func(t *testing.T) {
		msg := client.call(t, "tools/call", map[string]any{
			"name":      config.ToolTriggerTask,
			"arguments": map[string]any{"id": "my-task", "payload": `{"a":1}`},
		})
		text, isError := toolText(t, msg)
		if isError {
			t.Fatalf("Unexpected tool error: %s", text)
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			t.Fatalf("Result is not JSON: %v", err)
		}
		if out["id"] != "run_123" {
			t.Errorf("Expected run_123, got %v", out["id"])
		}
		if out["taskRunUrl"] != "https://dash.example/projects/v3/proj_ref/runs/run_123" {
			t.Errorf("Unexpected taskRunUrl %v", out["taskRunUrl"])
		}
	})

	t.Run("invalid payload never reaches backend", func(t *testing.T) {
		before := backendCalls.Load()
		msg := client.call(t, "tools/call", map[string]any{
			"name":      config.ToolTriggerTask,
			"arguments": map[string]any{"id": "my-task", "payload": "{not json"},
		})
		text, isError := toolText(t, msg)
		if !isError {
			t.Fatal("Expected a tool error")
		}
		if !strings.Contains(text, config.ErrInvalidPayload) {
			t.Errorf("Expected payload message, got %q", text)
		}
		if backendCalls.Load() != before {
			t.Error("Expected no backend call")
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		msg := client.call(t, "tools/call", map[string]any{"name": "nope", "arguments": map[string]any{}})
		text, isError := toolText(t, msg)
		if !isError || !strings.Contains(text, "unknown tool") {
			t.Errorf("Expected unknown tool error, got %q", text)
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		msg := client.call(t, "tools/call", map[string]any{
			"name":      config.ToolGetRun,
			"arguments": map[string]any{"runId": "run_missing"},
		})
		text, isError := toolText(t, msg)
		if !isError || !strings.Contains(text, "not found") {
			t.Errorf("Expected backend error, got %q", text)
		}
	})

	if !strings.Contains(logs.String(), `"msg":"tool_call"`) {
		t.Error("Expected tool calls to be audited")
	}
}
