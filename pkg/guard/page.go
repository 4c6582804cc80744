package guard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vbops/accessgate/pkg/limiter"
)

// PageResult is the outcome of a page-level check. When Allowed is false,
// RedirectURL points at the rate-limit notice route carrying the original
// path and the whole-second wait as query parameters, so the notice page
// can run a countdown and send the user back.
type PageResult struct {
	Allowed     bool
	RedirectURL string
	RetryAfter  time.Duration
}

// CheckPage enforces the shared page budget for one request.
//
// Requests for the notice route itself pass through without consuming:
// redirecting a throttled user to a page that is itself throttled would
// loop forever. All other pages consume one point from the Pages policy
// under the global scope.
func (g *Gate) CheckPage(ctx context.Context, req Request) (PageResult, error) {
	if strings.Contains(req.Path, g.cfg.NoticePath) {
		return PageResult{Allowed: true}, nil
	}

	user := g.user(ctx, req)
	key := DeriveKey(user, ClientAddress(req.Header), ScopeGlobal)

	dec, err := g.store.Consume(ctx, key, g.cfg.Pages)
	if err != nil {
		return PageResult{}, err
	}
	if dec.Allowed {
		return PageResult{Allowed: true}, nil
	}

	secs := limiter.RetryAfterSeconds(dec.RetryAfter)
	g.log.Info("page request rate limited",
		zap.String("path", req.Path),
		zap.String("scope", ScopeGlobal),
		zap.Int64("retry_after_s", secs))

	// query values are built by hand to keep the original path readable in
	// the location bar; the notice page parses both parameters back out
	redirect := g.cfg.NoticePath + "?url=" + req.Path + "&retryAfter=" + strconv.FormatInt(secs, 10)
	return PageResult{RedirectURL: redirect, RetryAfter: dec.RetryAfter}, nil
}
