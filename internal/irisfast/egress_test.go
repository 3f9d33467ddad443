package irisfast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAutoEgressFallsBackToHTTP(t *testing.T) {
	var got []ReplyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ReplyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		got = append(got, req)
	}))
	defer srv.Close()

	ws := NewWebSocket("ws://unused", 0, 0)
	eg := NewEgress(TransportAuto, false, NewClient(srv.URL), ws, nil)
	if err := eg.SendText(context.Background(), "r", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := eg.SendImage(context.Background(), "r", "aW1n"); err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	if len(got) != 2 || got[0].Type != "text" || got[1].Type != "image" {
		t.Fatalf("http replies = %+v", got)
	}
}

func TestWSEgressDryRun(t *testing.T) {
	eg := NewEgress(TransportWS, true, nil, NewWebSocket("ws://unused", 0, 0), nil)
	if err := eg.SendText(context.Background(), "r", "hello"); err != nil {
		t.Fatalf("dry run should not need a connection: %v", err)
	}
}

func TestWSEgressRequiresConnection(t *testing.T) {
	eg := NewEgress(TransportWS, false, nil, NewWebSocket("ws://unused", 0, 0), nil)
	if err := eg.SendText(context.Background(), "r", "hello"); err == nil {
		t.Fatalf("expected not connected error")
	}
}

func TestHTTPEgressWithoutClient(t *testing.T) {
	eg := NewEgress(TransportHTTP, false, nil, nil, nil)
	if err := eg.SendText(context.Background(), "r", "x"); err == nil {
		t.Fatalf("expected error")
	}
}
