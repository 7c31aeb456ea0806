package worker

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// StatusServer optionally exposes a Pool's advisory queue depth over
// HTTP as GET /status. It is entirely optional — the CLI only starts
// one when -status-addr is set — and never participates in job
// execution itself.
type StatusServer struct {
	echo *echo.Echo
	pool *Pool
}

// NewStatusServer builds (but does not start) a status server for pool.
func NewStatusServer(pool *Pool) *StatusServer {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &StatusServer{echo: e, pool: pool}
	e.GET("/status", s.handleStatus)
	return s
}

func (s *StatusServer) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.pool.Status())
}

// Start runs the server on addr until the process exits or Shutdown is
// called; it is meant to be run in its own goroutine.
func (s *StatusServer) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server.
func (s *StatusServer) Shutdown() error {
	return s.echo.Close()
}
