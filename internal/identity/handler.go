package identity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
)

// Handler exposes profile and administrative user endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserResponse is the public representation of an account.
type UserResponse struct {
	ID                int64      `json:"id"`
	PhoneNumber       string     `json:"phone_number"`
	FullName          string     `json:"full_name"`
	Email             string     `json:"email,omitempty"`
	Role              Role       `json:"role"`
	IsVerified        bool       `json:"is_verified"`
	KYCStatus         KYCStatus  `json:"kyc_status"`
	IsStaff           bool       `json:"is_staff"`
	IsActive          bool       `json:"is_active"`
	CanPostProperties bool       `json:"can_post_properties"`
	DateJoined        time.Time  `json:"date_joined"`
	LastLogin         *time.Time `json:"last_login"`
}

// NewUserResponse converts a User for serialization.
func NewUserResponse(u User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		PhoneNumber:       u.PhoneNumber,
		FullName:          u.FullName,
		Email:             u.Email,
		Role:              u.Role,
		IsVerified:        u.IsVerified,
		KYCStatus:         u.KYCStatus,
		IsStaff:           u.IsStaff,
		IsActive:          u.IsActive,
		CanPostProperties: u.CanPostProperties(),
		DateJoined:        u.DateJoined,
		LastLogin:         u.LastLogin,
	}
}

// Me returns the caller's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := Current(c)
	if !ok {
		return apperrors.Unauthenticated("")
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}

// UpdateMe applies self-service profile changes.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	user, ok := Current(c)
	if !ok {
		return apperrors.Unauthenticated("")
	}
	var req ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return apperrors.FieldError(apperrors.NonFieldErrors, "Malformed request body.")
	}
	updated, err := h.service.UpdateProfile(c.UserContext(), user.ID, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(updated))
}

// List returns accounts for administrators, filtered by ?role= and ?kyc_status=.
func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext(), Filter{
		Role:      Role(c.Query("role")),
		KYCStatus: KYCStatus(c.Query("kyc_status")),
	})
	if err != nil {
		return err
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Detail returns one account by id.
func (h *Handler) Detail(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}

type kycRequest struct {
	KYCStatus KYCStatus `json:"kyc_status"`
}

// ReviewKYC records a KYC decision for the account.
func (h *Handler) ReviewKYC(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req kycRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.FieldError(apperrors.NonFieldErrors, "Malformed request body.")
	}
	user, err := h.service.ReviewKYC(c.UserContext(), id, req.KYCStatus)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetStatus enables or disables the account.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.FieldError(apperrors.NonFieldErrors, "Malformed request body.")
	}
	if req.IsActive == nil {
		return apperrors.FieldError("is_active", "This field is required.")
	}
	user, err := h.service.SetActive(c.UserContext(), id, *req.IsActive)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound()
	}
	return id, nil
}
