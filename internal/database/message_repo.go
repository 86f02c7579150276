package database

import (
	"context"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type messageRepo struct {
	db DBTX
}

func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, channel_id, author_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ChannelID, msg.AuthorID, msg.Content, msg.CreatedAt,
	)
	return err
}

func (r *messageRepo) MaxIDByChannel(ctx context.Context, channelID int64) (int64, error) {
	var maxID int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM messages WHERE channel_id = $1`, channelID,
	).Scan(&maxID)
	return maxID, err
}
