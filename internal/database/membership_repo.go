package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type membershipRepo struct {
	db DBTX
}

func NewMembershipRepository(db DBTX) MembershipRepository {
	return &membershipRepo{db: db}
}

const membershipColumns = `server_id, user_id, display_name, joined_at, is_banned, ban_reason, banned_at`

func (r *membershipRepo) Create(ctx context.Context, m *models.Membership) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO memberships (server_id, user_id, display_name, joined_at)
		 VALUES ($1, $2, $3, $4)`,
		m.ServerID, m.UserID, m.DisplayName, m.JoinedAt,
	)
	return err
}

func (r *membershipRepo) get(ctx context.Context, serverID, userID int64, forUpdate bool) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE server_id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	m := &models.Membership{}
	err := r.db.QueryRow(ctx, query, serverID, userID).Scan(
		&m.ServerID, &m.UserID, &m.DisplayName, &m.JoinedAt, &m.IsBanned, &m.BanReason, &m.BannedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	roles, err := r.roleIDs(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	m.Roles = roles
	return m, nil
}

func (r *membershipRepo) GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	return r.get(ctx, serverID, userID, false)
}

func (r *membershipRepo) GetForUpdate(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	return r.get(ctx, serverID, userID, true)
}

func (r *membershipRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Membership, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE server_id = $1 ORDER BY joined_at`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ServerID, &m.UserID, &m.DisplayName, &m.JoinedAt, &m.IsBanned, &m.BanReason, &m.BannedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range members {
		roles, err := r.roleIDs(ctx, serverID, members[i].UserID)
		if err != nil {
			return nil, err
		}
		members[i].Roles = roles
	}
	return members, nil
}

func (r *membershipRepo) UserIDs(ctx context.Context, serverID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM memberships WHERE server_id = $1`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *membershipRepo) Update(ctx context.Context, m *models.Membership) error {
	_, err := r.db.Exec(ctx,
		`UPDATE memberships SET display_name = $3
		 WHERE server_id = $1 AND user_id = $2`,
		m.ServerID, m.UserID, m.DisplayName,
	)
	return err
}

func (r *membershipRepo) Delete(ctx context.Context, serverID, userID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM memberships WHERE server_id = $1 AND user_id = $2`, serverID, userID,
	)
	return err
}

func (r *membershipRepo) AddRole(ctx context.Context, serverID, userID, roleID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO membership_roles (server_id, user_id, role_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		serverID, userID, roleID,
	)
	return err
}

func (r *membershipRepo) RemoveRole(ctx context.Context, serverID, userID, roleID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM membership_roles WHERE server_id = $1 AND user_id = $2 AND role_id = $3`,
		serverID, userID, roleID,
	)
	return err
}

func (r *membershipRepo) SetRoles(ctx context.Context, serverID, userID int64, roleIDs []int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM membership_roles WHERE server_id = $1 AND user_id = $2`, serverID, userID,
	)
	if err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if err := r.AddRole(ctx, serverID, userID, roleID); err != nil {
			return err
		}
	}
	return nil
}

func (r *membershipRepo) SetBan(ctx context.Context, serverID, userID int64, banned bool, reason *string, at *time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE memberships SET is_banned = $3, ban_reason = $4, banned_at = $5
		 WHERE server_id = $1 AND user_id = $2`,
		serverID, userID, banned, reason, at,
	)
	return err
}

func (r *membershipRepo) MuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO muted_channels (server_id, user_id, channel_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		serverID, userID, channelID,
	)
	return err
}

func (r *membershipRepo) UnmuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM muted_channels WHERE server_id = $1 AND user_id = $2 AND channel_id = $3`,
		serverID, userID, channelID,
	)
	return err
}

func (r *membershipRepo) MutedChannels(ctx context.Context, serverID, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT channel_id FROM muted_channels WHERE server_id = $1 AND user_id = $2`,
		serverID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *membershipRepo) roleIDs(ctx context.Context, serverID, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT role_id FROM membership_roles WHERE server_id = $1 AND user_id = $2`,
		serverID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []int64
	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return nil, err
		}
		roles = append(roles, roleID)
	}
	return roles, rows.Err()
}
