package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"socialfeed/models"
)

type profileResponse struct {
	User      models.Author `json:"user"`
	Following int           `json:"following"`
	Saved     int           `json:"saved"`
}

// GetMyProfile returns the caller as the feed sees them.
func (h *Handler) GetMyProfile(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profileResponse{
		User:      models.AuthorOf(user, true),
		Following: len(user.Following),
		Saved:     len(user.Saved),
	})
}
