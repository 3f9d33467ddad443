package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/valyala/fasthttp"
)

// sign produces the v0 signature Slack attaches to a request.
func sign(key, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func signedHeader(key string, at time.Time, body []byte) http.Header {
	ts := strconv.FormatInt(at.Unix(), 10)
	h := make(http.Header)
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", sign(key, ts, body))
	return h
}

func TestVerify(t *testing.T) {
	body := []byte("token=x&team_id=T1&text=help")
	now := time.Now()

	if err := Verify("s3cr3t", signedHeader("s3cr3t", now, body), body); err != nil {
		t.Fatalf("valid: %v", err)
	}
	if err := Verify("other", signedHeader("s3cr3t", now, body), body); err == nil {
		t.Fatal("wrong secret accepted")
	}
	if err := Verify("s3cr3t", signedHeader("s3cr3t", now, body), []byte("team_id=T2")); err == nil {
		t.Fatal("tampered body accepted")
	}
	if err := Verify("s3cr3t", http.Header{}, body); !errors.Is(err, slack.ErrMissingHeaders) {
		t.Fatalf("missing = %v", err)
	}
	stale := signedHeader("s3cr3t", now.Add(-6*time.Minute), body)
	if err := Verify("s3cr3t", stale, body); !errors.Is(err, slack.ErrExpiredTimestamp) {
		t.Fatalf("stale = %v", err)
	}
	future := signedHeader("s3cr3t", now.Add(6*time.Minute), body)
	if err := Verify("s3cr3t", future, body); !errors.Is(err, slack.ErrExpiredTimestamp) {
		t.Fatalf("future = %v", err)
	}
}

func TestRequestHeaderCopiesSlackHeaders(t *testing.T) {
	var req fasthttp.Request
	req.Header.Set("X-Slack-Signature", "v0=abc")
	req.Header.Set("X-Slack-Request-Timestamp", "42")

	h := requestHeader(&req.Header)
	if h.Get("X-Slack-Signature") != "v0=abc" || h.Get("X-Slack-Request-Timestamp") != "42" {
		t.Fatalf("header = %v", h)
	}
}
