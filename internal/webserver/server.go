package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const appContextKey = "appctx"

// Response is the success envelope
type Response struct {
	Data interface{} `json:"data"`
	Meta interface{} `json:"meta,omitempty"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// CustomValidator plugs go-playground validation into echo's c.Validate
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// AdminServer hosts the JSON API
type AdminServer struct {
	root   *echo.Echo
	config *config.AppConfig
}

// NewAdminServer builds the echo instance and mounts every registered route.
// appCtx is made available to handlers through GetAppContext.
func NewAdminServer(cfg *config.AppConfig, appCtx interface{}) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveRequest(route, v.Status, v.Latency)
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("request", fields...)
			return nil
		},
	}))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.Secret))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	})

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, Response{Data: map[string]interface{}{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		}})
	})

	limiter := loginLimiter(cfg.Web.LoginRate)
	api := e.Group("/api")
	for _, r := range Routes() {
		mws := make([]echo.MiddlewareFunc, 0, len(r.Middlewares)+2)
		if r.Limited {
			mws = append(mws, limiter)
		}
		if !r.Public {
			mws = append(mws, requireLogin)
		}
		mws = append(mws, r.Middlewares...)
		api.Add(r.Method, r.Path, r.Handler, mws...)
	}

	return &AdminServer{root: e, config: cfg}
}

// Handler exposes the server for httptest
func (s *AdminServer) Handler() http.Handler {
	return s.root
}

// Start serves until Shutdown is called
func (s *AdminServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Web.Host, s.config.Web.Port)
	zap.L().Info("admin server listening", zap.String("addr", addr))
	err := s.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// GetAppContext returns the application handle attached to every request
func GetAppContext(c echo.Context) interface{} {
	return c.Get(appContextKey)
}

func loginLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "TOO_MANY_REQUESTS",
				Message: "Too many login attempts, try again later",
			})
		},
	})
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		zap.L().Error("unhandled request error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	body := ErrorResponse{Error: codeName(code), Message: message}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		zap.L().Error("write error response", zap.Error(err))
	}
}

func codeName(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	default:
		return "INTERNAL_ERROR"
	}
}
