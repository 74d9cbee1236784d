package handler

import (
	"net/http"

	"chatroom/internal/middleware"
	"chatroom/internal/session"
	"github.com/gin-gonic/gin"
)

type PageHandler struct{}

func (PageHandler) Index(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (PageHandler) Login(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}

func (PageHandler) SignUp(c *gin.Context) {
	c.HTML(http.StatusOK, "sign_up.html", nil)
}

func (PageHandler) Chat(c *gin.Context) {
	sc, ok := middleware.SessionFromContext(c)
	if !ok {
		middleware.Fail(c, &session.Error{Kind: session.Unauthorized})
		return
	}
	c.HTML(http.StatusOK, "chat.html", gin.H{"CSRFToken": sc.CSRFToken})
}
