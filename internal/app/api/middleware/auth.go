package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/response"
)

// ProfileKey holds the authenticated *models.Profile in gin.Context.
const ProfileKey = "profile"

// CronSecretHeader authorizes scheduled job triggers.
const CronSecretHeader = "X-Cron-Secret"

var (
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnknownProfile  = errors.New("profile not found")
	ErrAdminOnly       = errors.New("admin only")
	ErrAuthUnavailable = errors.New("authentication is not configured")
)

// Claims are the fields read from a Supabase access token.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Authenticator verifies HS256 bearer tokens and loads the caller's profile.
type Authenticator struct {
	secret     []byte
	cronSecret string
	db         *gorm.DB
	log        *zap.SugaredLogger
}

func NewAuthenticator(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Authenticator {
	return &Authenticator{
		secret:     []byte(cfg.Auth.JWTSecret),
		cronSecret: cfg.Auth.CronSecret,
		db:         db,
		log:        log,
	}
}

// Verify parses a token and returns the user id in its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrAuthUnavailable
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (a *Authenticator) authenticate(c *gin.Context) (*models.Profile, error) {
	token := bearer(c)
	if token == "" {
		return nil, ErrMissingToken
	}
	userID, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	var profile models.Profile
	if err := a.db.WithContext(c.Request.Context()).Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownProfile
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// attach stores the profile and tags the request logger with the user id.
func attach(c *gin.Context, p *models.Profile) {
	c.Set(ProfileKey, p)
	c.Set(logctx.UserIDKey, p.ID)
	c.Request = c.Request.WithContext(logctx.WithUserID(c.Request.Context(), p.ID))
	if l, ok := c.Get(logctx.LoggerKey); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			setLogger(c, lg.With("user_id", p.ID))
		}
	}
}

func abort(c *gin.Context, code response.APIResponseCode, err error) {
	c.AbortWithStatusJSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
}

// RequireUser rejects requests without a valid token for an existing profile.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.authenticate(c)
		if err != nil {
			logctx.FromGin(c, a.log).Infow("request not authenticated", "path", c.FullPath(), "error", err)
			abort(c, response.APIResponseCodeUnauthorized, unwrapAuth(err))
			return
		}
		attach(c, p)
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentProfile(c).IsAdmin() {
			abort(c, response.APIResponseCodeForbidden, ErrAdminOnly)
			return
		}
		c.Next()
	}
}

// RequireCronOrAdmin accepts the cron secret header or an admin token.
func (a *Authenticator) RequireCronOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if got := c.GetHeader(CronSecretHeader); got != "" && a.cronSecret != "" &&
			subtle.ConstantTimeCompare([]byte(got), []byte(a.cronSecret)) == 1 {
			c.Next()
			return
		}
		p, err := a.authenticate(c)
		if err != nil {
			abort(c, response.APIResponseCodeUnauthorized, unwrapAuth(err))
			return
		}
		if !p.IsAdmin() {
			abort(c, response.APIResponseCodeForbidden, ErrAdminOnly)
			return
		}
		attach(c, p)
		c.Next()
	}
}

// unwrapAuth hides parser details from clients.
func unwrapAuth(err error) error {
	for _, known := range []error{ErrMissingToken, ErrInvalidToken, ErrUnknownProfile, ErrAuthUnavailable} {
		if errors.Is(err, known) {
			return known
		}
	}
	return ErrInvalidToken
}

// CurrentProfile returns the profile attached by RequireUser, or nil.
func CurrentProfile(c *gin.Context) *models.Profile {
	if v, ok := c.Get(ProfileKey); ok {
		if p, ok := v.(*models.Profile); ok {
			return p
		}
	}
	return nil
}

// SignToken issues an HS256 token for userID. Used by tests and local tooling.
func SignToken(secret string, userID string, ttl time.Duration) (string, error) {
	claims := Claims{StandardClaims: jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}, Role: "authenticated"}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
