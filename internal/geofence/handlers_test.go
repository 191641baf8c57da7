package geofence

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/geraldsadya/Circles-sub000/internal/location"
)

var errNoRows = errors.New("no rows")

func passthrough(c *fiber.Ctx) error { return c.Next() }

func testApp(mock pgxmock.PgxPoolIface) *fiber.App {
	challenges := NewChallengeService(mock, 50)
	attempts := NewAttemptStore(mock)
	verifier := NewVerifier(&seqFixes{fixes: []location.Fix{{}}}, attempts, nil, nil, nil, VerifierConfig{})
	app := fiber.New()
	RegisterRoutes(app.Group("/challenges"), challenges, attempts, verifier, nil, passthrough)
	return app
}

func TestCreateChallengeHandler(t *testing.T) {
	mock := mockPool(t)

	mock.ExpectQuery(`INSERT INTO challenges`).
		WithArgs(pgxmock.AnyArg(), "gym dwell", "", 106.8, -6.2, 50.0, 20, 50, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	app := testApp(mock)

	body, _ := json.Marshal(Challenge{
		Name:           "gym dwell",
		TargetLat:      -6.2,
		TargetLng:      106.8,
		RadiusM:        50,
		MinDurationMin: 20,
		Points:         50,
		CreatedBy:      "user-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/challenges/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v", err)
	}
}

func TestCreateChallengeHandlerValidation(t *testing.T) {
	app := testApp(nil)

	body, _ := json.Marshal(Challenge{
		Name:           "broken",
		RadiusM:        -5,
		MinDurationMin: 20,
		CreatedBy:      "user-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/challenges/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected validation failure")
	}

	payload, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(payload), "Geofence radius must be greater than 0") {
		t.Fatalf("expected readable validation message, got %s", payload)
	}
}

func TestVerifyHandlerRequiresUser(t *testing.T) {
	app := testApp(nil)

	req := httptest.NewRequest(http.MethodPost, "/challenges/challenge-1/verify", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without user_id")
	}
}

func TestGetChallengeHandlerNotFound(t *testing.T) {
	mock := mockPool(t)

	mock.ExpectQuery(`SELECT id, name, description, ST_Y`).
		WithArgs("missing").
		WillReturnError(errNoRows)

	app := testApp(mock)

	req := httptest.NewRequest(http.MethodGet, "/challenges/missing", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}
