package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/config"
	"socialfeed/errs"
	"socialfeed/feed"
	"socialfeed/models"
)

const sendTimeout = 5 * time.Second

// SubscriptionStore is the part of the subscriptions repository the sender needs.
type SubscriptionStore interface {
	Find(ctx context.Context, userID primitive.ObjectID) (*models.Subscription, error)
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Sender delivers like notifications to post owners over web push.
type Sender struct {
	subs SubscriptionStore
	opts webpush.Options
	log  *zap.Logger
	wg   sync.WaitGroup
}

var _ feed.Notifier = (*Sender)(nil)

func New(subs SubscriptionStore, cfg config.Config, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{
		subs: subs,
		opts: webpush.Options{
			Subscriber:      cfg.VAPIDSubject,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             30,
		},
		log: log,
	}
}

// Notify pushes post_liked events to each recipient in the background.
// Other event types are left to the websocket hub.
func (s *Sender) Notify(ev feed.Event) {
	if ev.Type != feed.EventPostLiked {
		return
	}
	payload := Payload{
		Title: "New like",
		Body:  displayName(ev.Actor) + " liked your post",
		Icon:  ev.Actor.Avatar,
		Data: map[string]any{
			"postId":    ev.PostID.Hex(),
			"timestamp": time.Now().Unix(),
		},
	}
	for _, id := range ev.Recipients {
		s.wg.Add(1)
		go func(userID primitive.ObjectID) {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in push send", zap.Any("panic", r))
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			if err := s.Send(ctx, userID, payload); err != nil {
				s.log.Warn("push send failed", zap.String("user", userID.Hex()), zap.Error(err))
			}
		}(id)
	}
}

// Send delivers payload to userID's subscription. A user without one is not
// an error. Subscriptions the push service reports as gone are deleted.
func (s *Sender) Send(ctx context.Context, userID primitive.ObjectID, payload Payload) error {
	sub, err := s.subs.Find(ctx, userID)
	if errs.KindOf(err) == errs.NotFound {
		return nil
	}
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	opts := s.opts
	resp, err := webpush.SendNotificationWithContext(ctx, body, &sub.Sub, &opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		s.log.Info("push subscription expired", zap.String("user", userID.Hex()))
		return s.subs.Delete(ctx, userID)
	case resp.StatusCode >= 400:
		return errs.Errorf(errs.Internal, "push service returned %d", resp.StatusCode)
	}
	return nil
}

// Wait blocks until in-flight sends finish.
func (s *Sender) Wait() {
	s.wg.Wait()
}

func displayName(a models.Author) string {
	if a.Username != "" {
		return a.Username
	}
	if a.Fullname != "" {
		return a.Fullname
	}
	return "Someone"
}
