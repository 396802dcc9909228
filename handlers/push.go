package handlers

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialfeed/errs"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (h *Handler) GetVapidPublicKey(c *gin.Context) {
	if h.vapidPublicKey == "" {
		h.fail(c, errs.Errorf(errs.ServiceUnavailable, "Push notifications are not configured."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.vapidPublicKey})
}

// Subscribe stores the browser's push subscription for the caller,
// replacing any previous one.
func (h *Handler) Subscribe(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errs.Errorf(errs.BadRequest, "Invalid subscription."))
		return
	}

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys: webpush.Keys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	}
	if err := h.subs.Save(c.Request.Context(), user.ID, sub); err != nil {
		h.log.Error("save push subscription", zap.String("user", user.ID.Hex()), zap.Error(err))
		h.fail(c, errs.FromStorage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Push subscription saved."})
}
