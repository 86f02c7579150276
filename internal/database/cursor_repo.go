package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type cursorRepo struct {
	db DBTX
}

func NewCursorRepository(db DBTX) CursorRepository {
	return &cursorRepo{db: db}
}

func (r *cursorRepo) Insert(ctx context.Context, userID, channelID, lastMessageID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO read_cursors (user_id, channel_id, last_message_id, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, channel_id) DO NOTHING`,
		userID, channelID, lastMessageID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *cursorRepo) DeleteBatch(ctx context.Context, userID int64, channelIDs []int64) error {
	if len(channelIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM read_cursors WHERE user_id = $1 AND channel_id = ANY($2)`,
		userID, channelIDs,
	)
	return err
}

func (r *cursorRepo) Advance(ctx context.Context, userID, channelID, messageID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE read_cursors
		 SET last_message_id = GREATEST(last_message_id, $3), updated_at = NOW()
		 WHERE user_id = $1 AND channel_id = $2`,
		userID, channelID, messageID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *cursorRepo) GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, channel_id, last_message_id, updated_at
		 FROM read_cursors WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cursors []models.ReadCursor
	for rows.Next() {
		var c models.ReadCursor
		if err := rows.Scan(&c.UserID, &c.ChannelID, &c.LastMessageID, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
	}
	return cursors, rows.Err()
}

func (r *cursorRepo) GetByUserAndChannel(ctx context.Context, userID, channelID int64) (*models.ReadCursor, error) {
	c := &models.ReadCursor{}
	err := r.db.QueryRow(ctx,
		`SELECT user_id, channel_id, last_message_id, updated_at
		 FROM read_cursors WHERE user_id = $1 AND channel_id = $2`,
		userID, channelID,
	).Scan(&c.UserID, &c.ChannelID, &c.LastMessageID, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *cursorRepo) DeleteByChannel(ctx context.Context, channelID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM read_cursors WHERE channel_id = $1`, channelID)
	return err
}

func (r *cursorRepo) DeleteByUserAndServer(ctx context.Context, userID, serverID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM read_cursors
		 WHERE user_id = $1
		   AND channel_id IN (SELECT id FROM channels WHERE server_id = $2)`,
		userID, serverID,
	)
	return err
}
