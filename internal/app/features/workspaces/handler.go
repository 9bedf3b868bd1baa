// internal/app/features/workspaces/handler.go
package workspaces

import (
	"net/http"

	"github.com/dalemusser/planhub/internal/app/features/shared"
	wssvc "github.com/dalemusser/planhub/internal/app/services/workspaces"
	"github.com/dalemusser/planhub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves /api/workspaces: the workspace itself, its members and
// user search.
type Handler struct {
	Workspaces *wssvc.Service
	Log        *zap.Logger
}

func NewHandler(svc *wssvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Workspaces: svc, Log: logger}
}

// scope resolves the caller and the {workspaceId} path parameter. On
// failure the error response is already written.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (caller, wsID primitive.ObjectID, ok bool) {
	caller, err := shared.Caller(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return caller, wsID, false
	}
	wsID, err = shared.ObjectID(r, "workspaceId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return caller, wsID, false
	}
	return caller, wsID, true
}
