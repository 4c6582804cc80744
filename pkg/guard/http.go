package guard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vbops/accessgate/pkg/limiter"
)

// PageMiddleware enforces the page budget in front of server-rendered
// routes, issuing a redirect to the notice route on denial. The limiter is
// abuse mitigation, not a security boundary, so backend failures fail
// open.
func (g *Gate) PageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := g.CheckPage(r.Context(), Request{Path: r.URL.Path, Header: r.Header})
		if err != nil {
			g.log.Error("page rate limit check failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !res.Allowed {
			http.Redirect(w, r, res.RedirectURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIMiddleware is the JSON variant of the page budget for API routes: on
// denial it answers 429 with a Retry-After header and a JSON error body
// instead of redirecting.
func (g *Gate) APIMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{Path: r.URL.Path, Header: r.Header}
		user := g.user(r.Context(), req)
		key := DeriveKey(user, ClientAddress(r.Header), ScopeGlobal)

		dec, err := g.store.Consume(r.Context(), key, g.cfg.Pages)
		if err != nil {
			g.log.Error("api rate limit check failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !dec.Allowed {
			secs := limiter.RetryAfterSeconds(dec.RetryAfter)
			g.log.Info("api request rate limited",
				zap.String("path", r.URL.Path),
				zap.String("scope", ScopeGlobal),
				zap.Int64("retry_after_s", secs))

			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": fmt.Sprintf("too many requests, please wait %d seconds", secs),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
