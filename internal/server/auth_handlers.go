package server

import (
	"fmt"
	"time"

	"supplydesk/internal/models"
	"supplydesk/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionTTL is how long an issued session token stays valid. There is no
// revocation; admin demotion only takes effect after expiry.
const sessionTTL = 24 * time.Hour

// Authenticate handles POST /api/auth. Credentials are checked by the
// external verifier; on success a session token is issued with the admin
// flag resolved from the registry at issuance time.
func (s *Server) Authenticate(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	identity, err := s.verifier.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case models.IsCode(err, "UPSTREAM_TIMEOUT"):
			observability.AuthAttempts.WithLabelValues("timeout").Inc()
		case models.IsCode(err, "UNAUTHORIZED"):
			observability.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		default:
			observability.AuthAttempts.WithLabelValues("error").Inc()
		}
		return models.RespondWithAppError(c, err)
	}

	isAdmin := s.adminReg.IsAdmin(identity.Username)

	token, err := s.issueToken(identity.Username, identity.DisplayName, isAdmin)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("error").Inc()
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	observability.AuthAttempts.WithLabelValues("success").Inc()
	return c.JSON(fiber.Map{
		"success":  true,
		"token":    token,
		"user":     identity.DisplayName,
		"username": identity.Username,
		"isAdmin":  isAdmin,
	})
}

// issueToken creates a signed session token embedding identity and the
// admin flag.
func (s *Server) issueToken(username, displayName string, isAdmin bool) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   username,
		"name":  displayName,
		"admin": isAdmin,
		"iss":   "supplydesk-api",
		"exp":   now.Add(sessionTTL).Unix(),
		"iat":   now.Unix(),
		"jti":   s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
