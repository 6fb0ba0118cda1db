package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"meal-subscription-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", entity.ErrSubscriptionNotFound, fiber.StatusNotFound, entity.ErrSubscriptionNotFound.Error()},
		{"unknown notification type", fmt.Errorf("%w: LUNCH_MENU", entity.ErrUnknownNotificationType), fiber.StatusUnprocessableEntity, "unknown notification type: LUNCH_MENU"},
		{"rollback failed", fmt.Errorf("%w: %w", entity.ErrAddOnRollbackFailed, entity.ErrPaymentDeclined), fiber.StatusInternalServerError, "add-ons left attached after declined payment: payment declined"},
		{"forbidden", entity.ErrForbidden, fiber.StatusForbidden, entity.ErrForbidden.Error()},
		{"wrapped cutoff", fmt.Errorf("skip 2024-01-03: %w", entity.ErrCutoffPassed), fiber.StatusUnprocessableEntity, "skip 2024-01-03: too late to modify this date"},
		{"locked", entity.ErrSubscriptionLocked, fiber.StatusConflict, entity.ErrSubscriptionLocked.Error()},
		{"payment", fmt.Errorf("%w: %w", entity.ErrPaymentDeclined, entity.ErrInsufficientBalance), fiber.StatusPaymentRequired, "payment declined: insufficient wallet balance"},
		{"cutoff config hidden", fmt.Errorf("%w: bad value \"9am\"", entity.ErrCutoffUnavailable), fiber.StatusServiceUnavailable, "feature temporarily unavailable"},
		{"fiber error", fiber.NewError(fiber.StatusBadRequest, "Invalid date"), fiber.StatusBadRequest, "Invalid date"},
		{"validation", &ValidationError{Fields: []string{"date: required"}}, fiber.StatusBadRequest, "validation failed: date: required"},
		{"unknown", errors.New("pq: connection refused"), fiber.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, message := StatusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.message, message)
		})
	}
}

func TestErrorHandlerMiddlewareWritesEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return fmt.Errorf("reading row: %w", entity.ErrSubscriptionNotFound)
	})
	app.Get("/ok", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("fine", fiber.Map{"n": 1}))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, fiber.StatusNotFound, body.Code)

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJwtMiddleware(t *testing.T) {
	userId := uuid.New()
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/me", JwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		id, err := CurrentUserID(ctx)
		if err != nil {
			return err
		}
		return ctx.SendString(id.String() + "/" + ctx.Locals("role").(string))
	})
	app.Get("/agents", JwtMiddleware(testSecret), RequireRole(RoleDelivery), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	exp := time.Now().Add(time.Hour).Unix()
	customer := signed(t, testSecret, jwt.MapClaims{"user_id": userId.String(), "exp": exp})
	agent := signed(t, testSecret, jwt.MapClaims{"user_id": userId.String(), "role": RoleDelivery, "exp": exp})

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing", "/me", "", fiber.StatusUnauthorized},
		{"wrong secret", "/me", "Bearer " + signed(t, "other", jwt.MapClaims{"user_id": userId.String()}), fiber.StatusUnauthorized},
		{"expired", "/me", "Bearer " + signed(t, testSecret, jwt.MapClaims{"user_id": userId.String(), "exp": time.Now().Add(-time.Minute).Unix()}), fiber.StatusUnauthorized},
		{"no user id", "/me", "Bearer " + signed(t, testSecret, jwt.MapClaims{"role": RoleCustomer}), fiber.StatusUnauthorized},
		{"bad user id", "/me", "Bearer " + signed(t, testSecret, jwt.MapClaims{"user_id": "nope"}), fiber.StatusUnauthorized},
		{"customer", "/me", "Bearer " + customer, fiber.StatusOK},
		{"customer on agent route", "/agents", "Bearer " + customer, fiber.StatusForbidden},
		{"agent", "/agents", "Bearer " + agent, fiber.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type body struct {
		Date string `json:"date" validate:"required,datetime=2006-01-02"`
	}

	assert.NoError(t, ValidateRequest(body{Date: "2024-01-03"}))

	err := ValidateRequest(body{Date: "03/01/2024"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"date: datetime"}, verr.Fields)
}
