package httpx

import "github.com/labstack/echo/v4"

// Router registers routes under a shared prefix. Methods chain.
type Router struct {
	g *echo.Group
}

func (r *Router) GET(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	return r.add(echo.GET, path, h, mw...)
}

func (r *Router) POST(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	return r.add(echo.POST, path, h, mw...)
}

func (r *Router) add(method, path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	if r == nil || r.g == nil || h == nil || path == "" {
		return r
	}
	r.g.Add(method, path, h, mw...)
	return r
}
