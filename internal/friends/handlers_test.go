package friends

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func passthrough(c *fiber.Ctx) error { return c.Next() }

func TestAddFriendHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO friendships`).
		WithArgs("user-1", "user-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	app := fiber.New()
	RegisterRoutes(app.Group("/friends"), NewService(mock, testFixStore(t)), passthrough)

	body, _ := json.Marshal(Friendship{UserID: "user-1", FriendID: "user-2"})
	req := httptest.NewRequest(http.MethodPost, "/friends/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("add friend status: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddFriendHandlerSelf(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/friends"), NewService(nil, testFixStore(t)), passthrough)

	body, _ := json.Marshal(Friendship{UserID: "user-1", FriendID: "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/friends/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for self-friend")
	}
}

func TestListFriendsHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT user_id, friend_id, created_at`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "friend_id", "created_at"}).
			AddRow("user-1", "user-2", time.Now()))

	app := fiber.New()
	RegisterRoutes(app.Group("/friends"), NewService(mock, testFixStore(t)), passthrough)

	req := httptest.NewRequest(http.MethodGet, "/friends/?user_id=user-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
}

func TestFriendLocationsRequiresUser(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/friends"), NewService(nil, testFixStore(t)), passthrough)

	req := httptest.NewRequest(http.MethodGet, "/friends/locations", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request without user_id")
	}
}

func TestRemoveFriendHandler(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM friendships`).
		WithArgs("user-1", "user-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	app := fiber.New()
	RegisterRoutes(app.Group("/friends"), NewService(mock, testFixStore(t)), passthrough)

	body, _ := json.Marshal(Friendship{UserID: "user-1", FriendID: "user-2"})
	req := httptest.NewRequest(http.MethodDelete, "/friends/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove friend status: %v", err)
	}
}
