package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
)

const localsTokenKey = "auth.token"

// ExtractKey reads the token from an Authorization header using the Bearer or Token scheme.
func ExtractKey(header string) (string, bool) {
	scheme, key, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
	default:
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", false
	}
	return key, true
}

// SetCurrentToken stores the presented token key on the request.
func SetCurrentToken(c *fiber.Ctx, key string) {
	c.Locals(localsTokenKey, key)
}

// CurrentToken returns the token key the request authenticated with.
func CurrentToken(c *fiber.Ctx) string {
	key, _ := c.Locals(localsTokenKey).(string)
	return key
}

// Handler exposes auth endpoints for register/login/logout.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type sessionResponse struct {
	Message    string        `json:"message,omitempty"`
	Token      string        `json:"token"`
	UserID     int64         `json:"user_id"`
	Role       identity.Role `json:"role"`
	IsVerified bool          `json:"is_verified"`
}

func newSessionResponse(s Session, message string) sessionResponse {
	return sessionResponse{
		Message:    message,
		Token:      s.Token,
		UserID:     s.User.ID,
		Role:       s.User.Role,
		IsVerified: s.User.IsVerified,
	}
}

// Register creates an account and returns its token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req identity.Registration
	if err := c.BodyParser(&req); err != nil {
		return apperrors.FieldError(apperrors.NonFieldErrors, "Malformed request body.")
	}
	session, err := h.svc.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(newSessionResponse(session, "User registered successfully"))
}

// Login validates credentials and returns the caller's token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.FieldError(apperrors.NonFieldErrors, "Malformed request body.")
	}
	session, err := h.svc.Login(c.UserContext(), identity.Credentials{PhoneNumber: req.PhoneNumber, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(newSessionResponse(session, ""))
}

// Logout deletes the token the request authenticated with.
func (h *Handler) Logout(c *fiber.Ctx) error {
	key := CurrentToken(c)
	if key == "" {
		return apperrors.Unauthenticated("")
	}
	if err := h.svc.Logout(c.UserContext(), key); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Successfully logged out"})
}
