package httpx

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Context is the per-request handler context.
type Context = echo.Context

type HandlerFunc = echo.HandlerFunc

type MiddlewareFunc = echo.MiddlewareFunc

// App is a route table. Servers own one; tests may build a bare App and
// serve it with NewAppTestServer.
type App struct{ e *echo.Echo }

func New() *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler
	return &App{e}
}

func (a *App) Use(mw ...MiddlewareFunc) { a.e.Use(mw...) }

// Group returns a Router mounted under prefix.
func (a *App) Group(prefix string, mw ...MiddlewareFunc) *Router {
	return &Router{g: a.e.Group(prefix, mw...)}
}

func (a *App) GET(path string, h HandlerFunc, mw ...MiddlewareFunc) {
	a.e.GET(path, h, mw...)
}

func (a *App) POST(path string, h HandlerFunc, mw ...MiddlewareFunc) {
	a.e.POST(path, h, mw...)
}

// RecoverMiddleware turns handler panics into 500 responses.
func RecoverMiddleware() MiddlewareFunc { return middleware.Recover() }

// CORSMiddleware allows GET and POST from the given origins. An empty list
// allows any origin.
func CORSMiddleware(origins []string) MiddlewareFunc {
	cfg := middleware.DefaultCORSConfig
	cfg.AllowMethods = []string{echo.GET, echo.POST, echo.OPTIONS}
	if len(origins) > 0 {
		cfg.AllowOrigins = append([]string(nil), origins...)
	}
	return middleware.CORSWithConfig(cfg)
}

// HTTPError builds an error the server renders as {"error": message}.
func HTTPError(code int, message any) error { return echo.NewHTTPError(code, message) }
