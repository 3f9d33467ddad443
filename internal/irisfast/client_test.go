package irisfast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestClientSendMessage(t *testing.T) {
	var got ReplyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reply" || r.Header.Get("X-User-Id") != "bot" {
			t.Errorf("unexpected request %s %v", r.URL.Path, r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-User-Id": "bot", "X-Empty": " "}
	}))
	if err := c.SendMessage(context.Background(), "room", "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got != (ReplyRequest{Type: "text", Room: "room", Data: "hi"}) {
		t.Fatalf("body = %+v", got)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"port":3000,"polling_speed":100,"message_rate":50,"web_server_endpoint":"http://bot"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(3))
	c.sleep = noSleep
	cfg, err := c.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if calls.Load() != 3 || cfg.Port != 3000 || cfg.WebserverEndpoint != "http://bot" {
		t.Fatalf("calls=%d cfg=%+v", calls.Load(), cfg)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad room"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(5))
	c.sleep = noSleep
	err := c.SendImage(context.Background(), "room", "aGk=")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest || se.Body != "bad room" {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(0) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected progression")
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff should cap at attempt 6")
	}
}
