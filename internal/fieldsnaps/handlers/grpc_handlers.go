package handlers

import (
	"context"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/controller"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ActorResolver maps token claims to the signed-in user.
type ActorResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (*controller.Actor, error)
}

// FeedController reads the activity feed.
type FeedController interface {
	Feed(ctx context.Context, actor *controller.Actor, projectID *uuid.UUID, cursor models.FeedCursor, limit int) ([]*models.ActivityLog, error)
}

// UnreadCounter counts a user's unread notifications.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, actor *controller.Actor) (int64, error)
}

// ActivityHandler provides the gRPC activity methods.
type ActivityHandler struct {
	users         ActorResolver
	feed          FeedController
	notifications UnreadCounter
	logger        *zap.Logger
}

func NewActivityHandler(users ActorResolver, feed FeedController, notifications UnreadCounter, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		users:         users,
		feed:          feed,
		notifications: notifications,
		logger:        logger.Named("grpc_handler"),
	}
}

func (h *ActivityHandler) actor(ctx context.Context) (*controller.Actor, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing credentials")
	}
	actor, err := h.users.Resolve(ctx, claims)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return actor, nil
}

// ListActivity accepts optional projectId, before (RFC 3339), beforeId and
// limit fields and returns {"entries": [...]}, newest first. The next page
// starts at the last entry's createdAt and id.
func (h *ActivityHandler) ListActivity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()

	var projectID *uuid.UUID
	if raw := fields["projectId"].GetStringValue(); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid projectId")
		}
		projectID = &id
	}
	var cursor models.FeedCursor
	if raw := fields["before"].GetStringValue(); raw != "" {
		if cursor.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, "before must be an RFC 3339 time")
		}
	}
	if raw := fields["beforeId"].GetStringValue(); raw != "" {
		if cursor.CreatedAt.IsZero() {
			return nil, status.Error(codes.InvalidArgument, "beforeId requires before")
		}
		if cursor.ID, err = uuid.Parse(raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid beforeId")
		}
	}
	limit := int(fields["limit"].GetNumberValue())

	entries, err := h.feed.Feed(ctx, actor, projectID, cursor, limit)
	if err != nil {
		h.logger.Debug("List activity failed", zap.Error(err))
		return nil, mapServiceError(err)
	}

	list := make([]any, 0, len(entries))
	for _, entry := range entries {
		list = append(list, activityToMap(entry))
	}
	resp, err := structpb.NewStruct(map[string]any{"entries": list})
	if err != nil {
		h.logger.Error("Encode activity failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return resp, nil
}

// CountUnreadNotifications returns {"count": n}.
func (h *ActivityHandler) CountUnreadNotifications(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := h.actor(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.notifications.UnreadCount(ctx, actor)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"count": structpb.NewNumberValue(float64(n)),
	}}, nil
}

func activityToMap(a *models.ActivityLog) map[string]any {
	out := map[string]any{
		"id":         a.ID.String(),
		"userId":     a.UserID.String(),
		"action":     a.Action,
		"entityType": a.EntityType,
		"entityId":   a.EntityID.String(),
		"summary":    a.Summary,
		"createdAt":  a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if a.ProjectID != nil {
		out["projectId"] = a.ProjectID.String()
	}
	if len(a.Metadata) > 0 {
		out["metadata"] = a.Metadata
	}
	return out
}
