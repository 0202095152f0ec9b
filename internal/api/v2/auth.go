package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alliancehq/alliance-manager/internal/auth"
	"github.com/alliancehq/alliance-manager/internal/errors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Controller) initAuthRoutes() {
	g := c.Echo.Group("/api/auth")
	g.POST("/login", c.Login)
	g.POST("/logout", c.Logout)
	g.GET("/me", c.Me, c.authMiddleware)
}

// Login starts an admin session.
func (c *Controller) Login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	err := c.auth.Login(ctx.Response(), ctx.Request(), ctx.RealIP(), req.Username, req.Password)
	switch {
	case err == nil:
		return ctx.JSON(http.StatusOK, map[string]string{"user": req.Username})
	case errors.Is(err, auth.ErrTooManyAttempts):
		return ctx.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many failed attempts, try again later"})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrLoginDisabled):
		return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
	default:
		return c.HandleError(ctx, err, "Failed to log in", http.StatusInternalServerError)
	}
}

// Logout ends the session.
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.auth.Logout(ctx.Response(), ctx.Request()); err != nil {
		return c.HandleError(ctx, err, "Failed to log out", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Me returns the logged-in user.
func (c *Controller) Me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"user": ctx.Get(ctxUserKey)})
}
