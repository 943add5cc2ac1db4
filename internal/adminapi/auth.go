package adminapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/stockroom/internal/webserver"
	"go.uber.org/zap"
)

type registerPayload struct {
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginPayload struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

func registerAuthRoutes() {
	webserver.PublicPOST("/auth/register", register)
	webserver.PublicPOST("/auth/login", login).RateLimited()
	webserver.ApiPOST("/auth/logout", logout)
	webserver.ApiPOST("/auth/delete-account", deleteAccount)
	webserver.ApiGET("/profile", getProfile)
}

func register(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration", err.Error())
	}
	user, err := GetAppContext(c).Auth().Register(c.Request().Context(), payload.Username, payload.Password, payload.ConfirmPassword)
	if err != nil {
		return handleError(c, err)
	}
	return created(c, user)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION", "Username and password are required", nil)
	}

	appCtx := GetAppContext(c)
	user, err := appCtx.Auth().Authenticate(c.Request().Context(), payload.Username, payload.Password)
	if err != nil {
		zap.L().Info("login rejected", zap.String("username", payload.Username), zap.String("ip", c.RealIP()))
		return handleError(c, err)
	}
	su, err := webserver.Login(c, user, appCtx.Config().Web.SessionMaxAge)
	if err != nil {
		return handleError(c, err)
	}
	logOperation(c, "login", fmt.Sprintf("user %s logged in", user.Username))
	return ok(c, su)
}

func logout(c echo.Context) error {
	user := webserver.CurrentUser(c)
	sid, err := webserver.Logout(c)
	if err != nil {
		return handleError(c, err)
	}
	if sid != "" {
		GetAppContext(c).Carts().Drop(sid)
	}
	zap.L().Info("user logged out", zap.String("username", user.Username))
	return ok(c, map[string]interface{}{"logged_out": true})
}

func deleteAccount(c echo.Context) error {
	user := webserver.CurrentUser(c)
	appCtx := GetAppContext(c)
	if err := appCtx.Auth().DeleteAccount(c.Request().Context(), user.UserID); err != nil {
		return handleError(c, err)
	}
	logOperation(c, "delete-account", fmt.Sprintf("user %s deleted own account", user.Username))
	if sid, err := webserver.Logout(c); err == nil && sid != "" {
		appCtx.Carts().Drop(sid)
	}
	return ok(c, map[string]interface{}{"deleted": true})
}

func getProfile(c echo.Context) error {
	su := webserver.CurrentUser(c)
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()

	user, err := appCtx.Auth().Get(ctx, su.UserID)
	if err != nil {
		return handleError(c, err)
	}
	counts, err := appCtx.Orders().Counts(ctx)
	if err != nil {
		return handleError(c, err)
	}
	cartItems := 0
	if cart, found := appCtx.Carts().Lookup(su.Sid); found {
		cartItems = cart.TotalItemCount()
	}
	return ok(c, map[string]interface{}{
		"user":       user,
		"orders":     counts,
		"cart_items": cartItems,
	})
}
