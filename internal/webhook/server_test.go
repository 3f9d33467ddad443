package webhook

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap/zaptest"

	"github.com/park285/elo-ladder-bot/internal/adapter/elopresenter"
	"github.com/park285/elo-ladder-bot/internal/metrics"
	"github.com/park285/elo-ladder-bot/internal/msgcat"
	"github.com/park285/elo-ladder-bot/internal/service/elo"
)

const secret = "8f742231b10e8888abcd99yyyzzz85a5"

type harness struct {
	client *fasthttp.Client
}

func startServer(t *testing.T, skip bool) *harness {
	t.Helper()
	m := metrics.New()
	svc := elo.NewService(elo.NewMemoryRepository(), elo.Options{Logger: zaptest.NewLogger(t), Metrics: m})
	f := elopresenter.NewFormatter(msgcat.MustDefault(), "/elo", elopresenter.TagSlack,
		elopresenter.WithEmojiPicker(func(int) int { return 0 }))
	srv := New(svc, f, Options{SigningSecret: secret, SkipSigning: skip, Metrics: m, Logger: zaptest.NewLogger(t)})

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = ln.Close()
	})
	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return &harness{client: client}
}

func (h *harness) post(t *testing.T, form url.Values, signed bool, age time.Duration) *fasthttp.Response {
	t.Helper()
	key := ""
	if signed {
		key = secret
	}
	return h.postSigned(t, form, key, age)
}

func (h *harness) postSigned(t *testing.T, form url.Values, key string, age time.Duration) *fasthttp.Response {
	t.Helper()
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	body := []byte(form.Encode())
	req.SetRequestURI("http://bot" + CommandPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBody(body)
	if key != "" {
		ts := strconv.FormatInt(time.Now().Add(-age).Unix(), 10)
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", sign(key, ts, body))
	}
	resp := &fasthttp.Response{}
	if err := h.client.Do(req, resp); err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func (h *harness) get(t *testing.T, path string) *fasthttp.Response {
	t.Helper()
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI("http://bot" + path)
	resp := &fasthttp.Response{}
	if err := h.client.Do(req, resp); err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func command(user, text string) url.Values {
	return url.Values{"team_id": {"T1"}, "user_id": {user}, "text": {text}}
}

func decode(t *testing.T, resp *fasthttp.Response) replyJSON {
	t.Helper()
	var out replyJSON
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		t.Fatalf("decode %q: %v", resp.Body(), err)
	}
	return out
}

func TestCommandFlow(t *testing.T) {
	h := startServer(t, false)

	resp := h.post(t, command("U9", "register chess"), true, 0)
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if got := decode(t, resp); got.ResponseType != "ephemeral" || got.Text != "Successfully registered chess for this team!" {
		t.Fatalf("register reply = %+v", got)
	}

	got := decode(t, h.post(t, command("U9", "<@U1|al> beat <@U2|bo> at chess"), true, time.Minute))
	if got.ResponseType != "in_channel" || !strings.HasPrefix(got.Text, "Congratulations to <@U1> (+12.0)") {
		t.Fatalf("match reply = %+v", got)
	}

	got = decode(t, h.post(t, command("U1", "leaderboard chess"), true, 0))
	if len(got.Attachments) != 1 || got.Attachments[0].Text != "1. <@U1> (1212)\n2. <@U2> (1188)" {
		t.Fatalf("leaderboard = %+v", got)
	}
	if !strings.Contains(got.Attachments[0].Footer, "Accurate as of") {
		t.Fatalf("footer = %q", got.Attachments[0].Footer)
	}
}

func TestCommandMissingParameters(t *testing.T) {
	h := startServer(t, true)
	cases := map[string]url.Values{
		"missing parameter team_id": {"user_id": {"U1"}, "text": {"help"}},
		"missing parameter user_id": {"team_id": {"T1"}, "text": {"help"}},
	}
	for want, form := range cases {
		resp := h.post(t, form, false, 0)
		var e errorJSON
		_ = json.Unmarshal(resp.Body(), &e)
		if resp.StatusCode() != 400 || e.Message != want {
			t.Fatalf("status=%d body=%s", resp.StatusCode(), resp.Body())
		}
	}
}

func TestCommandSignatureChecks(t *testing.T) {
	h := startServer(t, false)
	if resp := h.post(t, command("U1", "help"), false, 0); resp.StatusCode() != 401 {
		t.Fatalf("unsigned status = %d", resp.StatusCode())
	}
	if resp := h.post(t, command("U1", "help"), true, 10*time.Minute); resp.StatusCode() != 401 {
		t.Fatalf("stale status = %d", resp.StatusCode())
	}
	if resp := h.postSigned(t, command("U1", "help"), "not-the-secret", 0); resp.StatusCode() != 401 {
		t.Fatalf("wrong secret status = %d", resp.StatusCode())
	}
	if resp := h.post(t, command("U1", "help"), true, time.Minute); resp.StatusCode() != 200 {
		t.Fatalf("signed status = %d", resp.StatusCode())
	}
}

func TestSkipSigning(t *testing.T) {
	h := startServer(t, true)
	if resp := h.post(t, command("U1", "help"), false, 0); resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := startServer(t, true)
	h.post(t, command("U1", "help"), false, 0)

	if resp := h.get(t, HealthPath); string(resp.Body()) != "ok" {
		t.Fatalf("healthz = %q", resp.Body())
	}
	resp := h.get(t, MetricsPath)
	if resp.StatusCode() != 200 || !strings.Contains(string(resp.Body()), `elo_commands_total{kind="help"} 1`) {
		t.Fatalf("metrics = %s", resp.Body())
	}
	if resp := h.get(t, "/nope"); resp.StatusCode() != 404 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if resp := h.get(t, CommandPath); resp.StatusCode() != 405 {
		t.Fatalf("GET command status = %d", resp.StatusCode())
	}
}
