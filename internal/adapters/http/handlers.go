package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/helegran/liveclass/internal/app"
	"github.com/helegran/liveclass/internal/domain"
)

type renameRequest struct {
	Username string `json:"username" binding:"required"`
}

func handleMe(ids *app.Identities) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString("client_token")
		user := ids.GetOrCreate(token)
		c.JSON(http.StatusOK, user)
	}
}

func handleRename(ids *app.Identities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req renameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid username"})
			return
		}
		token := c.GetString("client_token")
		if err := ids.UpdateUsername(token, req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ids.GetOrCreate(token))
	}
}

func handleGetSession(dir *app.SessionDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := dir.Get(domain.SessionID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func handleListSessions(dir *app.SessionDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dir.List())
	}
}
