// internal/app/features/realtime/handler.go
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	projectsvc "github.com/dalemusser/planhub/internal/app/services/projects"
	"github.com/dalemusser/planhub/internal/app/system/realtime"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// Handler upgrades board subscriptions to websockets and streams
// WorkItemChanged frames from the hub.
type Handler struct {
	Hub      *realtime.Hub
	Projects *projectsvc.Service
	// Origins restricts the Origin header of upgrades. Empty or "*"
	// accepts any origin.
	Origins []string
	Log     *zap.Logger
}

func NewHandler(hub *realtime.Hub, projects *projectsvc.Service, origins []string, logger *zap.Logger) *Handler {
	return &Handler{Hub: hub, Projects: projects, Origins: origins, Log: logger}
}

// ServeProject handles GET /ws/projects/{projectId}. Membership is checked
// before the upgrade so failures are ordinary JSON errors.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	projectID, err := shared.ObjectID(r, "projectId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	p, err := h.Projects.ForMember(ctx, caller, projectID)
	cancel()
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	topic := realtime.ProjectTopic(p.ID)
	srv := websocket.Server{
		Handshake: h.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			h.stream(conn, topic, caller.Hex())
		},
	}
	srv.ServeHTTP(w, r)
}

func (h *Handler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	if len(h.Origins) == 0 {
		return nil
	}
	origin := r.Header.Get("Origin")
	for _, o := range h.Origins {
		if o == "*" || strings.EqualFold(o, origin) {
			if u, err := url.Parse(origin); err == nil {
				cfg.Origin = u
			}
			return nil
		}
	}
	return fmt.Errorf("origin %q not allowed", origin)
}

// stream forwards hub events until the client goes away, the peer is
// dropped for being slow, or the hub stops.
func (h *Handler) stream(conn *websocket.Conn, topic, userID string) {
	defer conn.Close()

	peer, leave := h.Hub.Subscribe(topic)
	defer leave()
	h.Log.Debug("realtime subscribed",
		zap.String("topic", topic),
		zap.String("user_id", userID),
		zap.String("peer", peer.ID))

	// The client never sends anything meaningful; reading only tells us
	// when it hangs up.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard string
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-peer.Events():
			if err := websocket.JSON.Send(conn, ev); err != nil {
				h.Log.Debug("realtime send failed", zap.String("peer", peer.ID), zap.Error(err))
				return
			}
		case <-peer.Done():
			return
		case <-gone:
			return
		}
	}
}
