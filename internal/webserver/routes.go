package webserver

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// Route is an API endpoint registered before the server starts
type Route struct {
	Method      string
	Path        string
	Handler     echo.HandlerFunc
	Middlewares []echo.MiddlewareFunc
	Public      bool
	Limited     bool
}

// RateLimited applies the login rate limiter to the route
func (r *Route) RateLimited() *Route {
	r.Limited = true
	return r
}

var (
	routesMu sync.Mutex
	routes   []*Route
)

func addRoute(method, path string, public bool, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	routesMu.Lock()
	defer routesMu.Unlock()
	r := &Route{Method: method, Path: path, Handler: h, Middlewares: m, Public: public}
	routes = append(routes, r)
	return r
}

// Routes returns a snapshot of the registered routes
func Routes() []*Route {
	routesMu.Lock()
	defer routesMu.Unlock()
	out := make([]*Route, len(routes))
	copy(out, routes)
	return out
}

// ApiGET registers an authenticated GET route under /api
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	return addRoute(http.MethodGet, path, false, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	return addRoute(http.MethodPost, path, false, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	return addRoute(http.MethodPut, path, false, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	return addRoute(http.MethodDelete, path, false, h, m...)
}

// PublicGET registers a GET route under /api that needs no session
func PublicGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	return addRoute(http.MethodGet, path, true, h, m...)
}

func PublicPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *Route {
	return addRoute(http.MethodPost, path, true, h, m...)
}
