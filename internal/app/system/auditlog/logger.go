// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/planhub/internal/app/store/audit"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for audit events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether m is a recognised destination.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger records workspace administration events to the audit store and
// to structured logs, as selected by mode.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	mode   string
}

// New creates a Logger. An unrecognised mode behaves like ModeAll.
func New(store *audit.Store, zapLog *zap.Logger, mode string) *Logger {
	if !ValidMode(mode) {
		mode = ModeAll
	}
	return &Logger{store: store, zapLog: zapLog, mode: mode}
}

func (l *Logger) logToZap(e models.AuditEvent) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event_type", e.Type),
		zap.String("workspace_id", e.WorkspaceID.Hex()),
		zap.String("actor_id", e.ActorID.Hex()),
	}
	if e.TargetID != nil {
		fields = append(fields, zap.String("target_id", e.TargetID.Hex()))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)
}

// Log records e. A nil Logger is a no-op so services can run without one.
// A failed store write is logged and never returned.
func (l *Logger) Log(ctx context.Context, e models.AuditEvent) {
	if l == nil || l.mode == ModeOff {
		return
	}
	if l.mode == ModeAll || l.mode == ModeLog {
		l.logToZap(e)
	}
	if l.mode == ModeAll || l.mode == ModeDB {
		if _, err := l.store.Create(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", e.Type))
		}
	}
}

func (l *Logger) WorkspaceCreated(ctx context.Context, actorID primitive.ObjectID, ws models.Workspace) {
	l.Log(ctx, models.AuditEvent{
		WorkspaceID: ws.ID,
		ActorID:     actorID,
		Type:        models.AuditWorkspaceCreated,
		Details:     map[string]string{"name": ws.Name, "slug": ws.Slug},
	})
}

func (l *Logger) WorkspaceRenamed(ctx context.Context, actorID primitive.ObjectID, ws models.Workspace) {
	l.Log(ctx, models.AuditEvent{
		WorkspaceID: ws.ID,
		ActorID:     actorID,
		Type:        models.AuditWorkspaceRenamed,
		Details:     map[string]string{"name": ws.Name},
	})
}

// MembersInvited records a batch of invites. Nothing is recorded when no
// invite was created.
func (l *Logger) MembersInvited(ctx context.Context, actorID, workspaceID primitive.ObjectID, count int) {
	if count <= 0 {
		return
	}
	l.Log(ctx, models.AuditEvent{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Type:        models.AuditMembersInvited,
		Details:     map[string]string{"count": strconv.Itoa(count)},
	})
}

func (l *Logger) RoleChanged(ctx context.Context, actorID, workspaceID, targetID primitive.ObjectID, role models.Role) {
	l.Log(ctx, models.AuditEvent{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Type:        models.AuditRoleChanged,
		TargetID:    &targetID,
		Details:     map[string]string{"role": string(role)},
	})
}

func (l *Logger) MemberRemoved(ctx context.Context, actorID, workspaceID, targetID primitive.ObjectID) {
	l.Log(ctx, models.AuditEvent{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Type:        models.AuditMemberRemoved,
		TargetID:    &targetID,
	})
}

func (l *Logger) MemberLeft(ctx context.Context, userID, workspaceID primitive.ObjectID) {
	l.Log(ctx, models.AuditEvent{
		WorkspaceID: workspaceID,
		ActorID:     userID,
		Type:        models.AuditMemberLeft,
	})
}
