package Controllers

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Aerofield/Ledger"
	"Aerofield/Models"
	"Aerofield/Photos"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Ledger.ErrNotAuthorized, fiber.StatusForbidden},
		{fmt.Errorf("complete: %w", Ledger.ErrTaskNotFound), fiber.StatusNotFound},
		{fmt.Errorf("apply: %w", Ledger.ErrDebtNotFound), fiber.StatusNotFound},
		{Ledger.ErrTargetLocked, fiber.StatusConflict},
		{fmt.Errorf("append: %w", Ledger.ErrInvalidTransition), fiber.StatusConflict},
		{Ledger.ErrInvalidQuantity, fiber.StatusBadRequest},
		{Ledger.ErrInvalidAmount, fiber.StatusBadRequest},
		{Photos.ErrNotAnImage, fiber.StatusBadRequest},
		{Models.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{Models.ErrUserExists, fiber.StatusConflict},
		{validationError{fields: map[string]string{"a": "b"}}, fiber.StatusBadRequest},
		{errors.New("disk on fire"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestFail_HidesInternalErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error { return fail(c, errors.New("dsn password=secret")) })
	app.Get("/gone", func(c *fiber.Ctx) error { return fail(c, Ledger.ErrTaskNotFound) })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil), -1)
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body, "secret")

	resp, err = app.Test(httptest.NewRequest("GET", "/gone", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"task not found"}`, readBody(t, resp))
}

func TestBind_ReportsJSONFieldNames(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var req createTaskRequest
		if err := bind(c, &req); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"x","target_quantity":0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `"client"`)
	assert.Contains(t, body, `"target_quantity"`)

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParseWindow(t *testing.T) {
	app := fiber.New()
	var got Ledger.Window
	app.Get("/", func(c *fiber.Ctx) error {
		w, err := parseWindow(c)
		if err != nil {
			return fail(c, err)
		}
		got = w
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?from=2024-03-01&to=2024-03-31", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.From)
	assert.True(t, got.Contains(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, got.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

	resp, err = app.Test(httptest.NewRequest("GET", "/?to=31-03-2024", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
