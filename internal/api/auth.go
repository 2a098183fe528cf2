package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	cookieName = "poker_access"
	// browsers cap cookie lifetime at 400 days
	cookieMaxAge = 400 * 24 * 60 * 60
)

type loginRequest struct {
	Code string `json:"code" binding:"required"`
}

// login checks the shared code and hands it back as a cookie. Every later
// request is checked against the stored code again, so changing the code
// logs everyone out.
func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("code is required"))
		return
	}

	if err := a.gate.Check(c.Request.Context(), req.Code); err != nil {
		a.fail(c, err)
		return
	}

	c.SetCookie(cookieName, req.Code, cookieMaxAge, "/", "", a.secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) logout(c *gin.Context) {
	c.SetCookie(cookieName, "", -1, "/", "", a.secure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := c.Cookie(cookieName)
		if err != nil || code == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			return
		}
		if err := a.gate.Check(c.Request.Context(), code); err != nil {
			a.fail(c, err)
			return
		}
		c.Next()
	}
}

var errBadRequest = errors.New("bad request")

type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }
func (e requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error {
	return requestError{msg: msg}
}
