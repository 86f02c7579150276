package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type channelRepo struct {
	db DBTX
}

func NewChannelRepository(db DBTX) ChannelRepository {
	return &channelRepo{db: db}
}

func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO channels (id, server_id, name, kind, position, parent_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		channel.ID, channel.ServerID, channel.Name, channel.Kind, channel.Position, channel.ParentID,
	)
	return err
}

func (r *channelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	ch := &models.Channel{}
	err := r.db.QueryRow(ctx,
		`SELECT id, server_id, name, kind, position, parent_id, deleted_at
		 FROM channels WHERE id = $1`, id,
	).Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.Kind, &ch.Position, &ch.ParentID, &ch.DeletedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ch, err
}

func (r *channelRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Channel, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, server_id, name, kind, position, parent_id, deleted_at
		 FROM channels WHERE server_id = $1
		 ORDER BY position`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.Kind, &ch.Position, &ch.ParentID, &ch.DeletedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *channelRepo) Update(ctx context.Context, channel *models.Channel) error {
	_, err := r.db.Exec(ctx,
		`UPDATE channels SET name = $2, position = $3 WHERE id = $1`,
		channel.ID, channel.Name, channel.Position,
	)
	return err
}

func (r *channelRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE channels SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	return err
}

func (r *channelRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}

func (r *channelRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM channels WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
