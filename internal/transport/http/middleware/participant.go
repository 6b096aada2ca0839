package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"mindful-resolve/internal/pkg/jwtutil"
	"mindful-resolve/internal/pkg/sessioncode"
	"mindful-resolve/internal/transport/http/response"
)

const (
	ContextSessionCodeKey = "session_code"
	ContextRoleKey        = "participant_role"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrBadScheme    = errors.New("invalid authorization scheme")
)

// ParseParticipant reads the bearer token from the request and validates it.
func ParseParticipant(c *gin.Context, secret string) (*jwtutil.Claims, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return nil, ErrMissingToken
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return nil, ErrBadScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	return jwtutil.ParseToken(secret, token)
}

// AuthParticipant admits only holders of a token issued for the :code path
// parameter.
func AuthParticipant(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseParticipant(c, secret)
		if err != nil {
			response.Abort(c, 401, unauthorizedMessage(err))
			return
		}

		if claims.SessionCode != sessioncode.Normalize(c.Param("code")) {
			response.Abort(c, 403, "token does not belong to this session")
			return
		}

		c.Set(ContextSessionCodeKey, claims.SessionCode)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrBadScheme):
		return err.Error()
	default:
		return "invalid or expired token"
	}
}
