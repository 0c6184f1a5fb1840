package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

type NotificationService struct {
	db DBTX
}

func NewNotificationService(sdb *SharedDB) *NotificationService {
	return &NotificationService{
		sdb.db,
	}
}

func (s *NotificationService) Send(ctx context.Context, notif *models.Notification) error {
	sql, args, _ := psql.
		Insert("notifications").
		Columns("id", "user_id", "notif_type", "title", "text",
			"actor_id", "actor_name", "actor_avatar",
			"conversation_id", "post_id", "read", "created_at").
		Values(notif.ID, notif.UserID, notif.Type, notif.Title, notif.Text,
			notif.Actor.ID, notif.Actor.Name, notif.Actor.Avatar,
			notif.ConversationID, notif.PostID, notif.Read, notif.CreatedAt).
		ToSql()
	_, err := s.db.Exec(ctx, sql, args...)
	return err
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	notifs := []models.Notification{}
	sql, args, _ := psql.
		Select("id", "user_id", "notif_type", "title", "text",
			`actor_id AS "actor.id"`, `actor_name AS "actor.name"`, `actor_avatar AS "actor.avatar"`,
			"conversation_id", "post_id", "read", "created_at").
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, s.db, &notifs, sql, args...)
	if err != nil {
		return nil, err
	}
	return notifs, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, notifID string) error {
	sql, args, _ := psql.
		Update("notifications").
		Set("read", true).
		Where(sq.Eq{"user_id": userID, "id": notifID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, userID string, notifID string) error {
	sql, args, _ := psql.
		Delete("notifications").
		Where(sq.Eq{"user_id": userID, "id": notifID}).
		ToSql()

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Conversations aggregates message notifications into per-conversation
// summaries, feeding the conversations_update frame.
func (s *NotificationService) Conversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	convs := []models.ConversationSummary{}
	sql, args, _ := psql.
		Select("conversation_id",
			"COUNT(*) FILTER (WHERE NOT read) AS unread_count",
			"MAX(created_at) AS updated_at").
		From("notifications").
		Where(sq.And{
			sq.Eq{"user_id": userID, "notif_type": models.NotifTypeMessage},
			sq.NotEq{"conversation_id": ""},
		}).
		GroupBy("conversation_id").
		OrderBy("updated_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, s.db, &convs, sql, args...)
	if err != nil {
		return nil, err
	}
	return convs, nil
}
