package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type presetRepo struct {
	db DBTX
}

func NewPresetRepository(db DBTX) PresetRepository {
	return &presetRepo{db: db}
}

func (r *presetRepo) CreateSystemRole(ctx context.Context, role *models.SystemRole) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO system_roles (id, name) VALUES ($1, $2)`,
		role.ID, role.Name,
	)
	return err
}

func (r *presetRepo) GetSystemRole(ctx context.Context, id int64) (*models.SystemRole, error) {
	role := &models.SystemRole{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name FROM system_roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return role, err
}

func (r *presetRepo) AssignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO user_system_roles (user_id, system_role_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		userID, systemRoleID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *presetRepo) UnassignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM user_system_roles WHERE user_id = $1 AND system_role_id = $2`,
		userID, systemRoleID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *presetRepo) UserHasSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM user_system_roles WHERE user_id = $1 AND system_role_id = $2
		 )`, userID, systemRoleID,
	).Scan(&exists)
	return exists, err
}

func (r *presetRepo) UsersWithSystemRole(ctx context.Context, systemRoleID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM user_system_roles WHERE system_role_id = $1 ORDER BY user_id`,
		systemRoleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (r *presetRepo) SystemRolesOfUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT system_role_id FROM user_system_roles WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (r *presetRepo) CreatePreset(ctx context.Context, p *models.Preset) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO role_presets (system_role_id, server_role_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		p.SystemRoleID, p.ServerRoleID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *presetRepo) DeletePreset(ctx context.Context, systemRoleID, serverRoleID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM role_presets WHERE system_role_id = $1 AND server_role_id = $2`,
		systemRoleID, serverRoleID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *presetRepo) PresetsBySystemRole(ctx context.Context, systemRoleID int64) ([]models.Preset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT system_role_id, server_role_id FROM role_presets WHERE system_role_id = $1`,
		systemRoleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPresets(rows)
}

func (r *presetRepo) PresetsByServerRole(ctx context.Context, serverRoleID int64) ([]models.Preset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT system_role_id, server_role_id FROM role_presets WHERE server_role_id = $1`,
		serverRoleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPresets(rows)
}

func collectPresets(rows pgx.Rows) ([]models.Preset, error) {
	var presets []models.Preset
	for rows.Next() {
		var p models.Preset
		if err := rows.Scan(&p.SystemRoleID, &p.ServerRoleID); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
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
