package property

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
)

const msgInvalidNumber = "A valid number is required."

// Handler exposes property HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a property HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type propertyResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PropertyType Type      `json:"property_type"`
	Price        string    `json:"price"`
	Location     string    `json:"location"`
	IsAvailable  bool      `json:"is_available"`
	OwnerID      int64     `json:"owner_id"`
	OwnerPhone   string    `json:"owner_phone"`
	CreatedAt    time.Time `json:"created_at"`
}

func newResponse(p Property) propertyResponse {
	return propertyResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		PropertyType: p.Type,
		Price:        p.Price.StringFixed(2),
		Location:     p.Location,
		IsAvailable:  p.IsAvailable,
		OwnerID:      p.OwnerID,
		OwnerPhone:   p.OwnerPhone,
		CreatedAt:    p.CreatedAt,
	}
}

func newResponses(ps []Property) []propertyResponse {
	out := make([]propertyResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, newResponse(p))
	}
	return out
}

// Create stores a listing owned by the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	owner, ok := identity.Current(c)
	if !ok {
		return apperrors.Unauthenticated("")
	}
	in, err := parseInput(c)
	if err != nil {
		return err
	}
	p, err := h.service.Create(c.UserContext(), owner, in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(newResponse(p))
}

// List returns available listings.
func (h *Handler) List(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	ps, err := h.service.ListAvailable(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(newResponses(ps))
}

// Mine returns the caller's listings.
func (h *Handler) Mine(c *fiber.Ctx) error {
	owner, ok := identity.Current(c)
	if !ok {
		return apperrors.Unauthenticated("")
	}
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	if v := c.Query("is_available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.FieldError("is_available", "Must be a valid boolean.")
		}
		filter.Available = &b
	}
	ps, err := h.service.ListByOwner(c.UserContext(), owner.ID, filter)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(newResponses(ps))
}

// Detail returns one listing.
func (h *Handler) Detail(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(newResponse(p))
}

// Update replaces a listing's editable fields.
func (h *Handler) Update(c *fiber.Ctx) error {
	return h.modify(c, h.service.Update)
}

// Patch changes the supplied fields of a listing.
func (h *Handler) Patch(c *fiber.Ctx) error {
	return h.modify(c, h.service.Patch)
}

func (h *Handler) modify(c *fiber.Ctx, fn func(ctx context.Context, id int64, in Input) (Property, error)) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	in, err := parseInput(c)
	if err != nil {
		return err
	}
	p, err := fn(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(newResponse(p))
}

// Delete removes a listing.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// inputRequest mirrors Input but keeps price raw so a bad number is reported on its field.
type inputRequest struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	PropertyType *Type           `json:"property_type"`
	Price        json.RawMessage `json:"price"`
	Location     *string         `json:"location"`
	IsAvailable  *bool           `json:"is_available"`
}

func parseInput(c *fiber.Ctx) (Input, error) {
	var req inputRequest
	if err := c.BodyParser(&req); err != nil {
		return Input{}, apperrors.FieldError(apperrors.NonFieldErrors, "Malformed request body.")
	}
	in := Input{
		Title:        req.Title,
		Description:  req.Description,
		PropertyType: req.PropertyType,
		Location:     req.Location,
		IsAvailable:  req.IsAvailable,
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return Input{}, err
	}
	in.Price = price
	return in, nil
}

// parsePrice accepts a JSON number or numeric string. Absent and null mean "not supplied".
func parsePrice(raw json.RawMessage) (*decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, apperrors.FieldError("price", msgInvalidNumber)
	}
	return &d, nil
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	filter := Filter{
		Type:   Type(c.Query("property_type")),
		Search: c.Query("search"),
	}
	fields := map[string][]string{}
	if v := c.Query("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			fields["min_price"] = []string{msgInvalidNumber}
		} else {
			filter.MinPrice = &d
		}
	}
	if v := c.Query("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			fields["max_price"] = []string{msgInvalidNumber}
		} else {
			filter.MaxPrice = &d
		}
	}
	if len(fields) > 0 {
		return Filter{}, apperrors.Validation(fields)
	}
	return filter, nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound()
	}
	return id, nil
}
