package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/validation"
)

const (
	maxPriceDigits   = 10
	maxPriceDecimals = 2
	msgRequired      = "This field is required."
)

// Service exposes listing operations. Permission checks happen in the HTTP layer.
type Service struct {
	repo Repository
}

// NewService builds a property service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new listing owned by owner.
func (s *Service) Create(ctx context.Context, owner identity.User, in Input) (Property, error) {
	if err := validate(in, true); err != nil {
		return Property{}, err
	}
	p := Property{
		OwnerID:     owner.ID,
		OwnerPhone:  owner.PhoneNumber,
		IsAvailable: true,
		CreatedAt:   time.Now().UTC(),
	}
	apply(&p, in)
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Property{}, apperrors.Internal(err)
	}
	return created, nil
}

// ListAvailable returns listings open for rent.
func (s *Service) ListAvailable(ctx context.Context, filter Filter) ([]Property, error) {
	filter.OwnerID = 0
	filter.Available = nil
	filter.AvailableOnly = true
	return s.list(ctx, filter)
}

// ListByOwner returns every listing owned by ownerID regardless of availability.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64, filter Filter) ([]Property, error) {
	filter.OwnerID = ownerID
	filter.AvailableOnly = false
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter Filter) ([]Property, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperrors.FieldError("property_type", "\""+string(filter.Type)+"\" is not a valid choice.")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

// Get fetches one listing.
func (s *Service) Get(ctx context.Context, id int64) (Property, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Property{}, mapErr(err)
	}
	return p, nil
}

// Update replaces every editable field. All required fields must be supplied.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Property, error) {
	return s.update(ctx, id, in, true)
}

// Patch changes only the supplied fields.
func (s *Service) Patch(ctx context.Context, id int64, in Input) (Property, error) {
	return s.update(ctx, id, in, false)
}

func (s *Service) update(ctx context.Context, id int64, in Input, full bool) (Property, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Property{}, err
	}
	if err := validate(in, full); err != nil {
		return Property{}, err
	}
	apply(&p, in)
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Property{}, mapErr(err)
	}
	return updated, nil
}

// Delete removes a listing.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	return nil
}

// CountAvailable returns how many listings are open for rent.
func (s *Service) CountAvailable(ctx context.Context) (int, error) {
	n, err := s.repo.CountAvailable(ctx)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return n, nil
}

func mapErr(err error) error {
	if errors.Is(err, ErrPropertyNotFound) {
		return apperrors.NotFound()
	}
	return apperrors.Internal(err)
}

func apply(p *Property, in Input) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.PropertyType != nil {
		p.Type = *in.PropertyType
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
}

// validate checks field rules. With full set, every required field must be present.
func validate(in Input, full bool) error {
	extra := map[string][]string{}
	if full {
		if in.Title == nil {
			extra["title"] = []string{msgRequired}
		}
		if in.Description == nil {
			extra["description"] = []string{msgRequired}
		}
		if in.PropertyType == nil {
			extra["property_type"] = []string{msgRequired}
		}
		if in.Price == nil {
			extra["price"] = []string{msgRequired}
		}
		if in.Location == nil {
			extra["location"] = []string{msgRequired}
		}
	}
	if in.Price != nil {
		if problems := checkPrice(*in.Price); len(problems) > 0 {
			extra["price"] = problems
		}
	}
	return validation.Merge(validation.Struct(in), extra)
}

func checkPrice(price decimal.Decimal) []string {
	var problems []string
	if !price.IsPositive() {
		problems = append(problems, "Ensure this value is greater than 0.")
	}
	if -price.Exponent() > maxPriceDecimals && !price.Equal(price.Truncate(maxPriceDecimals)) {
		problems = append(problems, "Ensure that there are no more than 2 decimal places.")
	}
	if len(price.Truncate(0).Abs().String()) > maxPriceDigits-maxPriceDecimals {
		problems = append(problems, "Ensure that there are no more than 8 digits before the decimal point.")
	}
	return problems
}
