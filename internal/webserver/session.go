package webserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/stockroom/internal/domain"
)

const (
	SessionName    = "stockroom_session"
	sessionUserKey = "session_user"
)

// SessionUser is the identity carried by an authenticated session
type SessionUser struct {
	UserID   int64  `json:"user_id,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Sid      string `json:"-"`
}

func getSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(SessionName, c)
	if err != nil && sess == nil {
		return nil, errors.Wrap(err, "load session")
	}
	// an undecodable cookie yields a fresh session
	return sess, nil
}

func readSessionUser(c echo.Context) (*SessionUser, bool) {
	sess, err := getSession(c)
	if err != nil {
		return nil, false
	}
	uid := cast.ToInt64(sess.Values["user_id"])
	if uid == 0 {
		return nil, false
	}
	return &SessionUser{
		UserID:   uid,
		Username: cast.ToString(sess.Values["username"]),
		Role:     cast.ToString(sess.Values["role"]),
		Sid:      cast.ToString(sess.Values["sid"]),
	}, true
}

// CurrentUser returns the identity attached by the login gate
func CurrentUser(c echo.Context) *SessionUser {
	if u, ok := c.Get(sessionUserKey).(*SessionUser); ok {
		return u
	}
	u, _ := readSessionUser(c)
	return u
}

// Login starts an authenticated session with a fresh cart id
func Login(c echo.Context, user *domain.SysUser, maxAge int) (*SessionUser, error) {
	sess, err := getSession(c)
	if err != nil {
		return nil, err
	}
	su := &SessionUser{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Sid:      uuid.NewString(),
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values["user_id"] = su.UserID
	sess.Values["username"] = su.Username
	sess.Values["role"] = su.Role
	sess.Values["sid"] = su.Sid
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	c.Set(sessionUserKey, su)
	return su, nil
}

// Logout expires the session cookie and returns the cart id it carried
func Logout(c echo.Context) (string, error) {
	sess, err := getSession(c)
	if err != nil {
		return "", err
	}
	sid := cast.ToString(sess.Values["sid"])
	sess.Values = make(map[interface{}]interface{})
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", errors.Wrap(err, "expire session")
	}
	return sid, nil
}

// AccountChecker is implemented by application contexts that can confirm a
// session's account still exists
type AccountChecker interface {
	AccountExists(ctx context.Context, id int64) (bool, error)
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "UNAUTHORIZED",
		Message: message,
	})
}

// requireLogin rejects requests without an authenticated session or whose
// account has been deleted since login
func requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, ok := readSessionUser(c)
		if !ok {
			return unauthorized(c, "Login required")
		}
		if checker, ok := GetAppContext(c).(AccountChecker); ok {
			exists, err := checker.AccountExists(c.Request().Context(), u.UserID)
			if err != nil {
				return err
			}
			if !exists {
				if _, err := Logout(c); err != nil {
					return err
				}
				return unauthorized(c, "Account no longer exists")
			}
		}
		c.Set(sessionUserKey, u)
		return next(c)
	}
}
