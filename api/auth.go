package api

import (
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/personalman/absence-server/directory"
)

const claimCompany = "company"

// Auth issues and verifies HS256 bearer tokens. A nil *Auth means
// authentication is disabled and every route is public.
type Auth struct {
	tokenAuth  *jwtauth.JWTAuth
	expiration time.Duration
}

func NewAuth(secret string, expiration time.Duration) *Auth {
	return &Auth{
		tokenAuth:  jwtauth.New("HS256", []byte(secret), nil, jwt.WithAcceptableSkew(30*time.Second)),
		expiration: expiration,
	}
}

// IssueToken returns a signed token for u and its expiry as a unix time.
func (a *Auth) IssueToken(u directory.User) (string, int64, error) {
	expiresAt := time.Now().Add(a.expiration)
	claims := map[string]any{
		"sub":        u.Username,
		claimCompany: u.Company,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiry(claims, expiresAt)

	_, token, err := a.tokenAuth.Encode(claims)
	return token, expiresAt.Unix(), err
}

// Middlewares verifies the bearer token and rejects the request with 401
// when it is missing, malformed or expired.
func (a *Auth) Middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		jwtauth.Verifier(a.tokenAuth),
		authRequired,
	}
}

func authRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or missing token", err)
			return
		}
		if token == nil {
			writeError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowCompany reports whether the caller may act on company. Tokens are
// scoped to the company of the user they were issued to.
func (a *Auth) allowCompany(r *http.Request, company string) bool {
	if a == nil {
		return true
	}
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return false
	}
	scoped, _ := claims[claimCompany].(string)
	return scoped == company
}
