package webhook

import (
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/valyala/fasthttp"
)

// Verify checks a slash command request against the signing secret.
// Missing headers yield slack.ErrMissingHeaders and requests older than
// five minutes yield slack.ErrExpiredTimestamp.
func Verify(secret string, header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("slack signature: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("slack signature: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("slack signature: %w", err)
	}
	return nil
}

func requestHeader(h *fasthttp.RequestHeader) http.Header {
	out := make(http.Header)
	h.VisitAll(func(k, v []byte) {
		out.Add(string(k), string(v))
	})
	return out
}
