package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newGet(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return req
}

func TestStandardClient_Wraps(t *testing.T) {
	customClient := &http.Client{}
	client := NewStandardClient(customClient)

	if client.Client != customClient {
		t.Error("expected custom client to be wrapped")
	}
	if NewStandardClient(nil).Client != http.DefaultClient {
		t.Error("expected nil to fall back to http.DefaultClient")
	}
}

func TestNewTimeoutClient(t *testing.T) {
	c := NewTimeoutClient(10 * time.Second)
	if c.Timeout != 10*time.Second {
		t.Errorf("got timeout %v, want 10s", c.Timeout)
	}
}

func TestStandardClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/test" {
			t.Errorf("expected path /api/test, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("accepted"))
	}))
	defer server.Close()

	resp, err := NewStandardClient(nil).Do(newGet(t, server.URL+"/api/test"))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "accepted" {
		t.Errorf("got body %q, want 'accepted'", string(body))
	}
}

func TestMockHTTPClient_MultipleResponses(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "first")
	mock.AddResponse(http.StatusAccepted, "second")

	resp1, _ := mock.Do(newGet(t, "http://example.com/1"))
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()
	if string(body1) != "first" {
		t.Errorf("first response: got %q, want 'first'", string(body1))
	}

	resp2, _ := mock.Do(newGet(t, "http://example.com/2"))
	if resp2.StatusCode != http.StatusAccepted {
		t.Errorf("second response: got status %d, want %d", resp2.StatusCode, http.StatusAccepted)
	}
	resp2.Body.Close()

	// Exhausted queue falls back to an empty 200.
	resp3, _ := mock.Do(newGet(t, "http://example.com/3"))
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("default response: got status %d", resp3.StatusCode)
	}
	resp3.Body.Close()

	if mock.RequestCount() != 3 {
		t.Errorf("got %d requests, want 3", mock.RequestCount())
	}
}

func TestMockHTTPClient_Errors(t *testing.T) {
	mock := NewMockHTTPClient()
	expectedErr := errors.New("connection refused")
	mock.AddErrorResponse(expectedErr)

	if _, err := mock.Do(newGet(t, "http://example.com/api")); err != expectedErr {
		t.Errorf("got error %v, want %v", err, expectedErr)
	}

	mock.DefaultError = errors.New("network error")
	if _, err := mock.Do(newGet(t, "http://example.com/api")); err != mock.DefaultError {
		t.Errorf("got error %v, want default error", err)
	}
}

func TestMockHTTPClient_DoFunc(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTeapot,
			Body:       io.NopCloser(strings.NewReader("custom")),
			Request:    req,
		}, nil
	}

	resp, _ := mock.Do(newGet(t, "http://example.com/api"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
	if mock.GetRequest(0) == nil {
		t.Error("expected request to be recorded")
	}
	if mock.GetRequest(5) != nil || mock.GetRequest(-1) != nil {
		t.Error("GetRequest out of bounds should return nil")
	}
}

func TestMockHTTPClient_Reset(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "test")
	mock.DefaultError = errors.New("error")
	mock.Do(newGet(t, "http://example.com/api"))
	mock.Reset()

	if len(mock.Requests) != 0 || len(mock.Responses) != 0 || mock.DefaultError != nil {
		t.Error("Reset should clear requests, responses and DefaultError")
	}
	if _, ok := mock.LastCall(); ok {
		t.Error("Reset should clear recorded calls")
	}
}

func TestMockHTTPClient_Calls(t *testing.T) {
	mock := NewMockHTTPClient()
	if _, ok := mock.LastCall(); ok {
		t.Error("expected no call before the first request")
	}

	mock.Do(newGet(t, "http://backend/api/convex-function?resolution=10"))
	mock.Do(newGet(t, "http://backend/api/fft?samples=64"))
	mock.Do(newGet(t, "http://backend/api/convex-function?resolution=20&wireframe=true"))

	last, ok := mock.LastCall()
	if !ok {
		t.Fatal("expected a recorded call")
	}
	if last.Method != http.MethodGet || last.Path != "/api/convex-function" {
		t.Errorf("got %s %s, want GET /api/convex-function", last.Method, last.Path)
	}
	if last.Query.Get("resolution") != "20" || last.Query.Get("wireframe") != "true" {
		t.Errorf("unexpected query %v", last.Query)
	}

	convex := mock.CallsTo("/api/convex-function")
	if len(convex) != 2 {
		t.Fatalf("got %d convex calls, want 2", len(convex))
	}
	if convex[0].Query.Get("resolution") != "10" {
		t.Errorf("first convex call resolution = %q, want 10", convex[0].Query.Get("resolution"))
	}
	if n := len(mock.CallsTo("/api/fft")); n != 1 {
		t.Errorf("got %d fft calls, want 1", n)
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    bool
	}{
		{"ok", http.StatusOK, `{"x":1}`, 0, false},
		{"bad json", http.StatusOK, `{"x":`, 0, true},
		{"server error", http.StatusInternalServerError, "boom\n", http.StatusInternalServerError, true},
		{"not found", http.StatusNotFound, "", http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader(tt.body))}
			var v struct{ X int }
			err := ReadJSON(resp, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadJSON err = %v, wantErr %v", err, tt.wantErr)
			}
			var se *StatusError
			if errors.As(err, &se) {
				if se.StatusCode != tt.wantStatus {
					t.Errorf("status = %d, want %d", se.StatusCode, tt.wantStatus)
				}
			} else if tt.wantStatus != 0 {
				t.Errorf("expected *StatusError, got %v", err)
			}
			if !tt.wantErr && v.X != 1 {
				t.Errorf("decoded X = %d, want 1", v.X)
			}
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	if got := (&StatusError{StatusCode: 502}).Error(); got != "unexpected status 502" {
		t.Errorf("got %q", got)
	}
	if got := (&StatusError{StatusCode: 500, Body: "boom"}).Error(); got != "unexpected status 500: boom" {
		t.Errorf("got %q", got)
	}
}
