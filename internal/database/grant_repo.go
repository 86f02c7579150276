package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type grantRepo struct {
	db DBTX
}

func NewGrantRepository(db DBTX) GrantRepository {
	return &grantRepo{db: db}
}

func (r *grantRepo) Insert(ctx context.Context, g *models.ChannelGrant) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO channel_grants (channel_id, role_id, capability)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		g.ChannelID, g.RoleID, g.Capability,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *grantRepo) Delete(ctx context.Context, channelID, roleID int64, capability int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM channel_grants WHERE channel_id = $1 AND role_id = $2 AND capability = $3`,
		channelID, roleID, capability,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *grantRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.ChannelGrant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT g.channel_id, g.role_id, g.capability
		 FROM channel_grants g
		 INNER JOIN channels c ON c.id = g.channel_id
		 WHERE c.server_id = $1`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *grantRepo) GetByChannel(ctx context.Context, channelID int64) ([]models.ChannelGrant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT channel_id, role_id, capability
		 FROM channel_grants WHERE channel_id = $1`, channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *grantRepo) DeleteByChannel(ctx context.Context, channelID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM channel_grants WHERE channel_id = $1`, channelID)
	return err
}

func (r *grantRepo) DeleteByRole(ctx context.Context, roleID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM channel_grants WHERE role_id = $1`, roleID)
	return err
}

func collectGrants(rows pgx.Rows) ([]models.ChannelGrant, error) {
	var grants []models.ChannelGrant
	for rows.Next() {
		var g models.ChannelGrant
		if err := rows.Scan(&g.ChannelID, &g.RoleID, &g.Capability); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
