package httppresentation

import (
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// Authenticator turns a bearer token into a verified identity.
type Authenticator interface {
	Verify(token string) (*auth.Identity, error)
}

type accessLevel int

const (
	// public routes never look at the Authorization header.
	public accessLevel = iota
	// optional routes accept anonymous callers but reject a bad token.
	optional
	// signedIn routes require a valid token.
	signedIn
)

func (h *Handler) withIdentity(access accessLevel, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if access == public {
			next(w, r)
			return
		}
		token, present := bearerToken(r)
		if !present {
			if access == signedIn {
				writeAppError(w, r, apperr.Unauthorized("authentication required"))
				return
			}
			next(w, r)
			return
		}
		if h.deps.Auth == nil {
			writeAppError(w, r, apperr.Unauthorized("authentication is not configured"))
			return
		}
		id, err := h.deps.Auth.Verify(token)
		if err != nil {
			logctx.FromOr(r.Context(), h.log).Debug("auth_token_rejected", observability.F("error", err.Error()))
			writeAppError(w, r, apperr.Unauthorized("invalid or expired token"))
			return
		}
		ctx := logctx.With(auth.WithIdentity(r.Context(), id),
			logctx.FromOr(r.Context(), h.log).With(observability.F("user_id", id.UserID)))
		next(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// requirePermission writes 403 and returns nil when the caller lacks p.
func requirePermission(w http.ResponseWriter, r *http.Request, p auth.Permission) *auth.Identity {
	id := auth.FromContext(r.Context())
	if id == nil {
		writeAppError(w, r, apperr.Unauthorized("authentication required"))
		return nil
	}
	if !id.Can(p) {
		writeAppError(w, r, apperr.Forbidden("missing permission "+string(p)))
		return nil
	}
	return id
}
