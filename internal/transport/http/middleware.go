package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	participantKey  = "participant"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
	})
}

// RequestID propagates or assigns the X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
		}
		if p, ok := participantFrom(c); ok {
			fields = append(fields, "participant", p.ID)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// Claims are the access token claims issued by the identity provider.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies HS256 bearer tokens and keeps the participant row
// in sync with the claims.
type AuthMiddleware struct {
	log      *logger.Logger
	secret   []byte
	issuer   string
	profiles *app.ProfileService
}

func NewAuthMiddleware(log *logger.Logger, secret, issuer string, profiles *app.ProfileService) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{
		log:      log.With("Middleware", "AuthMiddleware"),
		secret:   []byte(secret),
		issuer:   issuer,
		profiles: profiles,
	}
}

var errUnauthorized = errors.New("missing or invalid token")

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			RespondError(c, http.StatusUnauthorized, "unauthorized", errUnauthorized)
			return
		}
		claims, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			RespondError(c, http.StatusUnauthorized, "unauthorized", errUnauthorized)
			return
		}

		participant, err := am.profiles.Sync(c.Request.Context(), domain.Participant{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  parseRole(claims.Role),
		})
		if err != nil {
			respondDomainError(c, am.log, err)
			return
		}
		c.Set(participantKey, participant)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := participantFrom(c)
		if !ok || p.Role != domain.RoleAdmin {
			RespondError(c, http.StatusForbidden, "forbidden", errors.New("forbidden"))
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if am.issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// queryTokenRoutes may carry the token as ?token=. Browsers cannot set headers
// on a websocket handshake or on a page-unload beacon.
var queryTokenRoutes = map[string]bool{
	"/api/v1/ws":                true,
	"/api/v1/quizzes/:id/flush": true,
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if queryTokenRoutes[c.FullPath()] {
		return c.Query("token")
	}
	return ""
}

func parseRole(raw string) domain.Role {
	switch role := domain.Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case domain.RoleAdmin, domain.RoleModerator:
		return role
	default:
		return domain.RoleUser
	}
}

func participantFrom(c *gin.Context) (domain.Participant, bool) {
	v, ok := c.Get(participantKey)
	if !ok {
		return domain.Participant{}, false
	}
	p, ok := v.(domain.Participant)
	return p, ok
}
