package property

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
)

var landlord = identity.User{ID: 7, PhoneNumber: "+255712000007", Role: identity.RoleLandlord}

func strp(s string) *string { return &s }

func boolp(b bool) *bool { return &b }

func typep(t Type) *Type { return &t }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fullInput(title, location, price string) Input {
	return Input{
		Title:        strp(title),
		Description:  strp("Two bedrooms, tiled floors"),
		PropertyType: typep(TypeApartment),
		Price:        decp(price),
		Location:     strp(location),
	}
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected *apperrors.Error, got %T", err)
	require.Equal(t, apperrors.KindValidation, appErr.Kind)
	return appErr.Fields
}

func TestCreateAssignsOwnerAndDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	p, err := svc.Create(context.Background(), landlord, fullInput("Sinza flat", "Sinza, Dar es Salaam", "350000"))
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, landlord.ID, p.OwnerID)
	assert.Equal(t, landlord.PhoneNumber, p.OwnerPhone)
	assert.True(t, p.IsAvailable)
	assert.Equal(t, "350000.00", p.Price.StringFixed(2))
}

func TestCreateRejectsInvalidPrice(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	for _, price := range []string{"0", "-10", "12.345", "123456789"} {
		_, err := svc.Create(ctx, landlord, fullInput("Flat", "Mbezi", price))
		require.Error(t, err, price)
		assert.Contains(t, fieldsOf(t, err), "price", price)
	}
}

func TestCreateRequiresAllFields(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	_, err := svc.Create(context.Background(), landlord, Input{Title: strp("Only title")})
	require.Error(t, err)
	fields := fieldsOf(t, err)
	for _, name := range []string{"description", "property_type", "price", "location"} {
		assert.Contains(t, fields, name)
	}
	assert.NotContains(t, fields, "title")
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	in := fullInput("Villa", "Masaki", "900000")
	in.PropertyType = typep("CASTLE")

	_, err := svc.Create(context.Background(), landlord, in)
	require.Error(t, err)
	assert.Contains(t, fieldsOf(t, err), "property_type")
}

func TestUpdateRequiresFullPayloadButPatchDoesNot(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	p, err := svc.Create(ctx, landlord, fullInput("Room", "Kariakoo", "80000"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, Input{Price: decp("90000")})
	require.Error(t, err)
	assert.Contains(t, fieldsOf(t, err), "title")

	patched, err := svc.Patch(ctx, p.ID, Input{Price: decp("90000"), IsAvailable: boolp(false)})
	require.NoError(t, err)
	assert.Equal(t, "90000.00", patched.Price.StringFixed(2))
	assert.False(t, patched.IsAvailable)
	assert.Equal(t, "Room", patched.Title)
	assert.Equal(t, landlord.ID, patched.OwnerID)

	updated, err := svc.Update(ctx, p.ID, fullInput("Big room", "Kariakoo", "95000.50"))
	require.NoError(t, err)
	assert.Equal(t, "Big room", updated.Title)
	assert.Equal(t, "95000.50", updated.Price.StringFixed(2))
}

func TestGetUpdateDeleteMissing(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.Get(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.Patch(ctx, 404, Input{Title: strp("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 404), apperrors.ErrNotFound)
}

func TestDeleteRemovesListing(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	p, err := svc.Create(ctx, landlord, fullInput("House", "Mikocheni", "1200000"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListAvailableFiltersAndOrdersNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []Property{
		{OwnerID: 7, OwnerPhone: landlord.PhoneNumber, Title: "Old flat", Type: TypeApartment, Price: decimal.NewFromInt(100000), Location: "Sinza", IsAvailable: true, CreatedAt: base},
		{OwnerID: 7, OwnerPhone: landlord.PhoneNumber, Title: "New house", Type: TypeHouse, Price: decimal.NewFromInt(500000), Location: "Mbezi", IsAvailable: true, CreatedAt: base.Add(time.Hour)},
		{OwnerID: 8, OwnerPhone: "+255612000008", Title: "Hidden room", Type: TypeRoom, Price: decimal.NewFromInt(50000), Location: "Sinza", IsAvailable: false, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, p := range seed {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	all, err := svc.ListAvailable(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "New house", all[0].Title)
	assert.Equal(t, "Old flat", all[1].Title)

	byType, err := svc.ListAvailable(ctx, Filter{Type: TypeApartment})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "Old flat", byType[0].Title)

	bySearch, err := svc.ListAvailable(ctx, Filter{Search: " sinza "})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)

	byPrice, err := svc.ListAvailable(ctx, Filter{MinPrice: decp("200000"), MaxPrice: decp("600000")})
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, "New house", byPrice[0].Title)

	_, err = svc.ListAvailable(ctx, Filter{Type: "CASTLE"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	n, err := svc.CountAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListByOwnerIncludesUnavailable(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	other := identity.User{ID: 9, PhoneNumber: "+255612000009"}

	p, err := svc.Create(ctx, landlord, fullInput("Shop", "Kariakoo", "700000"))
	require.NoError(t, err)
	_, err = svc.Patch(ctx, p.ID, Input{IsAvailable: boolp(false)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, landlord, fullInput("Flat", "Upanga", "400000"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, fullInput("Elsewhere", "Arusha", "300000"))
	require.NoError(t, err)

	mine, err := svc.ListByOwner(ctx, landlord.ID, Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	hidden, err := svc.ListByOwner(ctx, landlord.ID, Filter{Available: boolp(false)})
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.Equal(t, "Shop", hidden[0].Title)
}
