package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evanschultz/tavla/internal/adapters/server/common"
)

// stubBoards is a minimal board service for mux composition tests.
type stubBoards struct{}

func (stubBoards) ListBoards(context.Context) ([]common.BoardSummary, error) {
	return []common.BoardSummary{{Key: "alpha"}}, nil
}

func (stubBoards) GetBoard(context.Context, string) (common.BoardView, error) {
	return common.BoardView{Key: "alpha"}, nil
}

func (stubBoards) MoveCard(context.Context, common.MoveCardRequest) (common.BoardView, error) {
	return common.BoardView{}, nil
}

func (stubBoards) MoveColumn(context.Context, common.MoveColumnRequest) (common.BoardView, error) {
	return common.BoardView{}, nil
}

// TestNewHandlerRoutes verifies health, readiness, and API mounts.
func TestNewHandlerRoutes(t *testing.T) {
	ready := errors.New("db closed")
	handler, cfg, err := NewHandler(Config{APIEndpoint: "api/v1/"}, Dependencies{
		Boards: stubBoards{},
		Ready:  func(context.Context) error { return ready },
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.ServerName != "tavla" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	cases := []struct {
		path string
		want int
	}{
		{path: "/healthz", want: http.StatusOK},
		{path: "/readyz", want: http.StatusServiceUnavailable},
		{path: "/api/v1/boards", want: http.StatusOK},
		{path: "/api/v1/boards/alpha", want: http.StatusOK},
		{path: "/api/v1/nope", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("GET %s status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}

	ready = nil
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /readyz after recovery status = %d, want 200", rec.Code)
	}
}

// TestNewHandlerValidation verifies missing deps and endpoint collisions fail.
func TestNewHandlerValidation(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() without boards error = nil, want error")
	}
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, Dependencies{Boards: stubBoards{}}); err == nil {
		t.Fatal("NewHandler() with colliding endpoints error = nil, want error")
	}
}

// TestRunStopsOnCancel verifies Run returns cleanly once its context ends.
func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Boards: stubBoards{}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
