package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type serverRepo struct {
	db DBTX
}

func NewServerRepository(db DBTX) ServerRepository {
	return &serverRepo{db: db}
}

func (r *serverRepo) Create(ctx context.Context, server *models.Server) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO servers (id, name, icon_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		server.ID, server.Name, server.IconHash, server.CreatedAt,
	)
	return err
}

func (r *serverRepo) GetByID(ctx context.Context, id int64) (*models.Server, error) {
	s := &models.Server{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, icon_hash, created_at
		 FROM servers WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.IconHash, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *serverRepo) Update(ctx context.Context, server *models.Server) error {
	_, err := r.db.Exec(ctx,
		`UPDATE servers SET name = $2, icon_hash = $3 WHERE id = $1`,
		server.ID, server.Name, server.IconHash,
	)
	return err
}

func (r *serverRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM servers WHERE id = $1`, id)
	return err
}

func (r *serverRepo) GetByUserID(ctx context.Context, userID int64) ([]models.Server, error) {
	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.name, s.icon_hash, s.created_at
		 FROM servers s
		 INNER JOIN memberships m ON m.server_id = s.id
		 WHERE m.user_id = $1 AND NOT m.is_banned
		 ORDER BY s.created_at`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(&s.ID, &s.Name, &s.IconHash, &s.CreatedAt); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}
