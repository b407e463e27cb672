package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikonekti/nikonekti_backend/internal/config"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/logging"
	"github.com/nikonekti/nikonekti_backend/internal/middleware"
)

const testPassword = "Kibo#Summit5895"

type testEnv struct {
	t     *testing.T
	app   *fiber.App
	repos Repositories
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	logger := logging.Discard()
	repos := NewRepositories(nil)
	d := Deps{
		Cfg: config.Config{
			AppEnv:                 "test",
			IdempotencyTTL:         time.Minute,
			LoginAttemptsPerMinute: 100,
			PropertyListVisibility: config.VisibilityAuthenticated,
			BcryptCost:             bcrypt.MinCost,
		},
		Logger: logger,
		Repos:  &repos,
	}
	for _, m := range mutate {
		m(&d)
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	require.NoError(t, Setup(app, d))
	return &testEnv{t: t, app: app, repos: repos}
}

func (e *testEnv) do(method, path, token string, body any, headers ...string) (int, map[string]any, []any) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	if resp.StatusCode == fiber.StatusNoContent {
		return resp.StatusCode, nil, nil
	}
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&raw))
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		return resp.StatusCode, obj, nil
	}
	var list []any
	require.NoError(e.t, json.Unmarshal(raw, &list))
	return resp.StatusCode, nil, list
}

func (e *testEnv) register(phone, role string) (string, int64) {
	e.t.Helper()
	status, body, _ := e.do(fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"phone_number": phone,
		"full_name":    "Amani Lyimo",
		"password":     testPassword,
		"password2":    testPassword,
		"role":         role,
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)
	return body["token"].(string), int64(body["user_id"].(float64))
}

func (e *testEnv) admin() string {
	e.t.Helper()
	ids := identity.NewService(e.repos.Users, nil, logging.Discard(), bcrypt.MinCost)
	_, err := ids.CreateAdmin(context.Background(), "+255699000000", "Site Admin", testPassword)
	require.NoError(e.t, err)
	status, body, _ := e.do(fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"phone_number": "+255699000000",
		"password":     testPassword,
	})
	require.Equal(e.t, fiber.StatusOK, status, body)
	return body["token"].(string)
}

func listing(title string, price any) map[string]any {
	return map[string]any{
		"title":         title,
		"description":   "Self contained, water and power included",
		"property_type": "APARTMENT",
		"price":         price,
		"location":      "Sinza, Dar es Salaam",
	}
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	env := newTestEnv(t)
	env.register("+255712100001", "TENANT")

	status, body, _ := env.do(fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"phone_number": "+255712100001",
		"full_name":    "Someone Else",
		"password":     testPassword,
		"password2":    testPassword,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "phone_number")
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	status, body, _ := env.do(fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"phone_number": "+255712100002",
		"full_name":    "Amani Lyimo",
		"password":     "12345678",
		"password2":    "12345678",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "password")
}

func TestRegisterResponseShape(t *testing.T) {
	env := newTestEnv(t)

	status, body, _ := env.do(fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"phone_number": "+255612100003",
		"full_name":    "Amani Lyimo",
		"password":     testPassword,
		"password2":    testPassword,
		"role":         "AGENT",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "User registered successfully", body["message"])
	assert.Len(t, body["token"], 40)
	assert.Equal(t, "AGENT", body["role"])
	assert.Equal(t, false, body["is_verified"])
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.register("+255712100004", "TENANT")

	for _, creds := range []map[string]any{
		{"phone_number": "+255712100004", "password": "wrong-password"},
		{"phone_number": "+255712999999", "password": testPassword},
	} {
		status, body, _ := env.do(fiber.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, []any{"Invalid phone number or password"}, body["non_field_errors"])
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("+255712100005", "TENANT")

	status, _, _ := env.do(fiber.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body, _ := env.do(fiber.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Successfully logged out", body["message"])

	status, _, _ = env.do(fiber.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _, _ = env.do(fiber.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestOnlyLandlordCreatesAndOwnsProperty(t *testing.T) {
	env := newTestEnv(t)
	tenant, _ := env.register("+255712100006", "TENANT")
	agent, _ := env.register("+255712100007", "AGENT")
	landlord, landlordID := env.register("+255712100008", "LANDLORD")

	for _, tok := range []string{tenant, agent} {
		status, _, _ := env.do(fiber.MethodPost, "/api/properties/create", tok, listing("Flat", "250000"))
		assert.Equal(t, fiber.StatusForbidden, status)
	}
	status, _, _ := env.do(fiber.MethodPost, "/api/properties/create", "", listing("Flat", "250000"))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", "250000"))
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.EqualValues(t, landlordID, body["owner_id"])
	assert.Equal(t, "+255712100008", body["owner_phone"])
	assert.Equal(t, "250000.00", body["price"])
	assert.Equal(t, true, body["is_available"])

	status, _, mine := env.do(fiber.MethodGet, "/api/properties/my-properties", landlord, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, mine, 1)
}

func TestPropertyPriceMustBePositive(t *testing.T) {
	env := newTestEnv(t)
	landlord, _ := env.register("+255712100009", "LANDLORD")

	for _, price := range []any{"0", "-5", 0, -100} {
		status, body, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", price))
		assert.Equal(t, fiber.StatusBadRequest, status, fmt.Sprint(price))
		assert.Contains(t, body, "price")
	}
}

func TestOnlyAdminUpdatesAndDeletesProperty(t *testing.T) {
	env := newTestEnv(t)
	landlord, _ := env.register("+255712100010", "LANDLORD")
	tenant, _ := env.register("+255712100011", "TENANT")
	admin := env.admin()

	_, created, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", "300000"))
	path := fmt.Sprintf("/api/properties/%d", int64(created["id"].(float64)))

	status, body, _ := env.do(fiber.MethodGet, path, tenant, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Flat", body["title"])

	for _, tok := range []string{landlord, tenant} {
		status, _, _ = env.do(fiber.MethodPut, path, tok, listing("Renamed", "310000"))
		assert.Equal(t, fiber.StatusForbidden, status)
		status, _, _ = env.do(fiber.MethodDelete, path, tok, nil)
		assert.Equal(t, fiber.StatusForbidden, status)
	}

	status, body, _ = env.do(fiber.MethodPut, path, admin, listing("Renamed", "310000"))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Renamed", body["title"])
	assert.Equal(t, "310000.00", body["price"])

	status, body, _ = env.do(fiber.MethodPatch, path, admin, map[string]any{"is_available": false})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, false, body["is_available"])
	assert.Equal(t, "Renamed", body["title"])

	status, _, _ = env.do(fiber.MethodDelete, path, admin, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body, _ = env.do(fiber.MethodGet, path, tenant, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Not found.", body["detail"])
}

func TestPropertyListShowsOnlyAvailable(t *testing.T) {
	env := newTestEnv(t)
	landlord, _ := env.register("+255712100012", "LANDLORD")
	tenant, _ := env.register("+255712100013", "TENANT")
	admin := env.admin()

	_, first, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Hidden", "100000"))
	env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Visible", "200000"))
	env.do(fiber.MethodPatch, fmt.Sprintf("/api/properties/%d", int64(first["id"].(float64))), admin,
		map[string]any{"is_available": false})

	status, _, _ := env.do(fiber.MethodGet, "/api/properties/list", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _, list := env.do(fiber.MethodGet, "/api/properties/list", tenant, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, list, 1)
	assert.Equal(t, "Visible", list[0].(map[string]any)["title"])

	status, _, list = env.do(fiber.MethodGet, "/api/properties/list?min_price=150000&property_type=APARTMENT", tenant, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, list, 1)

	status, _, mine := env.do(fiber.MethodGet, "/api/properties/my-properties?is_available=false", landlord, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, mine, 1)
	assert.Equal(t, "Hidden", mine[0].(map[string]any)["title"])
}

func TestPublicPropertyListAllowsAnonymous(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Cfg.PropertyListVisibility = config.VisibilityPublic })

	status, _, list := env.do(fiber.MethodGet, "/api/properties/list", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, list)
}

func TestTenantDashboard(t *testing.T) {
	env := newTestEnv(t)
	tenant, _ := env.register("+255712100014", "TENANT")
	landlord, _ := env.register("+255712100015", "LANDLORD")
	env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", "100000"))

	status, body, _ := env.do(fiber.MethodGet, "/api/tenant/dashboard", tenant, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Welcome, Amani", body["message"])
	assert.EqualValues(t, 1, body["available_properties"])

	status, _, _ = env.do(fiber.MethodGet, "/api/tenant/dashboard", landlord, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	landlordToken, landlordID := env.register("+255712100016", "LANDLORD")
	admin := env.admin()
	userPath := fmt.Sprintf("/api/admin/users/%d", landlordID)

	status, _, _ := env.do(fiber.MethodGet, "/api/admin/users", landlordToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _, users := env.do(fiber.MethodGet, "/api/admin/users?role=LANDLORD", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, users, 1)

	status, body, _ := env.do(fiber.MethodPatch, userPath+"/kyc", admin, map[string]any{"kyc_status": "APPROVED"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "APPROVED", body["kyc_status"])
	assert.Equal(t, true, body["is_verified"])

	status, body, _ = env.do(fiber.MethodPatch, userPath+"/status", admin, map[string]any{"is_active": false})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, false, body["is_active"])

	status, body, _ = env.do(fiber.MethodGet, "/api/users/me", landlordToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "User inactive or deleted.", body["detail"])

	status, _, _ = env.do(fiber.MethodGet, "/api/admin/users/999", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("+255712100017", "TENANT")

	status, body, _ := env.do(fiber.MethodPatch, "/api/users/me", token, map[string]any{"email": "amani@example.co.tz"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "amani@example.co.tz", body["email"])
	assert.Equal(t, "+255712100017", body["phone_number"])
}

func TestLoginIsThrottledPerPhone(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	env := newTestEnv(t, func(d *Deps) {
		d.Cache = cache
		d.Cfg.LoginAttemptsPerMinute = 2
	})
	env.register("+255712100024", "TENANT")
	good := map[string]any{"phone_number": "+255712100024", "password": testPassword}
	for i := 0; i < 4; i++ {
		status, _, _ := env.do(fiber.MethodPost, "/api/auth/login", "", good)
		require.Equal(t, fiber.StatusOK, status, "successful logins must not use up the allowance")
	}

	creds := map[string]any{"phone_number": "+255712100018", "password": "nope"}
	for i := 0; i < 2; i++ {
		status, _, _ := env.do(fiber.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, fiber.StatusBadRequest, status)
	}
	status, body, _ := env.do(fiber.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, body, "detail")
}

func newCachedEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return newTestEnv(t, func(d *Deps) { d.Cache = cache })
}

func TestLoginIgnoresReusedIdempotencyKey(t *testing.T) {
	env := newCachedEnv(t)
	env.register("+255712100019", "LANDLORD")

	status, body, _ := env.do(fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"phone_number": "+255712100019",
		"password":     testPassword,
	}, "Idempotency-Key", "1")
	require.Equal(t, fiber.StatusOK, status)
	require.NotEmpty(t, body["token"])

	status, body, _ = env.do(fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"phone_number": "+255700000000",
		"password":     "wrong-password",
	}, "Idempotency-Key", "1")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotContains(t, body, "token")
	assert.Equal(t, []any{"Invalid phone number or password"}, body["non_field_errors"])
}

func TestRegisterIsNeverReplayed(t *testing.T) {
	env := newCachedEnv(t)
	payload := map[string]any{
		"phone_number": "+255712100020",
		"full_name":    "Amani Lyimo",
		"password":     testPassword,
		"password2":    testPassword,
	}

	status, _, _ := env.do(fiber.MethodPost, "/api/auth/register", "", payload, "Idempotency-Key", "reg-1")
	require.Equal(t, fiber.StatusCreated, status)

	status, body, _ := env.do(fiber.MethodPost, "/api/auth/register", "", payload, "Idempotency-Key", "reg-1")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "phone_number")
}

func TestPropertyCreateReplaysWithIdempotencyKey(t *testing.T) {
	env := newCachedEnv(t)
	landlord, _ := env.register("+255712100021", "LANDLORD")
	other, _ := env.register("+255712100022", "LANDLORD")

	status, first, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", "250000"), "Idempotency-Key", "create-1")
	require.Equal(t, fiber.StatusCreated, status)

	status, second, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", "250000"), "Idempotency-Key", "create-1")
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, first["id"], second["id"])

	status, _, _ = env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Other flat", "90000"), "Idempotency-Key", "create-1")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, third, _ := env.do(fiber.MethodPost, "/api/properties/create", other, listing("Flat", "250000"), "Idempotency-Key", "create-1")
	require.Equal(t, fiber.StatusCreated, status)
	assert.NotEqual(t, first["id"], third["id"])

	_, _, mine := env.do(fiber.MethodGet, "/api/properties/my-properties", landlord, nil)
	assert.Len(t, mine, 1)
}

func TestPropertyCreateRejectsNonNumericPrice(t *testing.T) {
	env := newTestEnv(t)
	landlord, _ := env.register("+255712100023", "LANDLORD")

	status, body, _ := env.do(fiber.MethodPost, "/api/properties/create", landlord, listing("Flat", "abc"))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, []any{"A valid number is required."}, body["price"])
	assert.NotContains(t, body, "non_field_errors")
}
