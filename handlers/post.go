package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"socialfeed/errs"
	"socialfeed/feed"
	"socialfeed/query"
)

type postRequest struct {
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

func (h *Handler) bindPost(c *gin.Context) (postRequest, bool) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errs.Errorf(errs.BadRequest, "Invalid request body."))
		return req, false
	}
	return req, true
}

func (h *Handler) CreatePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	req, ok := h.bindPost(c)
	if !ok {
		return
	}

	res, err := h.feed.CreatePost(c.Request.Context(), user, req.Content, req.Images)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPosts(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	res, err := h.feed.GetPosts(c.Request.Context(), user, page(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}
	req, ok := h.bindPost(c)
	if !ok {
		return
	}

	res, err := h.feed.UpdatePost(c.Request.Context(), user, postID, req.Content, req.Images)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) LikePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.LikePost(c.Request.Context(), user, postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UnlikePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.UnlikePost(c.Request.Context(), user, postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeletePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.DeletePost(c.Request.Context(), user, postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetUserPosts(c *gin.Context) {
	userID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.GetUserPosts(c.Request.Context(), userID, page(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPost(c *gin.Context) {
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.GetPost(c.Request.Context(), postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DiscoverPosts(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	n := query.ParseCount(c.Query("num"), feed.DefaultDiscover)
	res, err := h.feed.Discover(c.Request.Context(), user, n)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SavePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.SavePost(c.Request.Context(), user, postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UnsavePost(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	postID, ok := h.objectID(c, "id")
	if !ok {
		return
	}

	res, err := h.feed.UnsavePost(c.Request.Context(), user, postID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetSavedPosts(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	res, err := h.feed.GetSavedPosts(c.Request.Context(), user, page(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
