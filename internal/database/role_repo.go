package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

type roleRepo struct {
	db DBTX
}

func NewRoleRepository(db DBTX) RoleRepository {
	return &roleRepo{db: db}
}

const roleColumns = `id, server_id, name, tag, color, kind, permissions`

func scanRole(row pgx.Row, role *models.Role) error {
	return row.Scan(&role.ID, &role.ServerID, &role.Name, &role.Tag, &role.Color, &role.Kind, &role.Permissions)
}

func (r *roleRepo) Create(ctx context.Context, role *models.Role) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO roles (id, server_id, name, tag, color, kind, permissions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		role.ID, role.ServerID, role.Name, role.Tag, role.Color, role.Kind, role.Permissions,
	)
	return err
}

func (r *roleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role := &models.Role{}
	err := scanRole(r.db.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id,
	), role)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return role, err
}

func (r *roleRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE server_id = $1 ORDER BY kind DESC, id`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *roleRepo) GetByKind(ctx context.Context, serverID int64, kind models.RoleKind) (*models.Role, error) {
	role := &models.Role{}
	err := scanRole(r.db.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE server_id = $1 AND kind = $2`, serverID, kind,
	), role)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return role, err
}

func (r *roleRepo) GetByMembership(ctx context.Context, serverID, userID int64) ([]models.Role, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.server_id, r.name, r.tag, r.color, r.kind, r.permissions
		 FROM roles r
		 INNER JOIN membership_roles mr ON mr.role_id = r.id
		 WHERE mr.server_id = $1 AND mr.user_id = $2
		 ORDER BY r.kind DESC, r.id`, serverID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *roleRepo) HoldersOf(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM membership_roles WHERE role_id = $1 ORDER BY user_id`, roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *roleRepo) Update(ctx context.Context, role *models.Role) error {
	_, err := r.db.Exec(ctx,
		`UPDATE roles SET name = $2, tag = $3, color = $4, permissions = $5
		 WHERE id = $1`,
		role.ID, role.Name, role.Tag, role.Color, role.Permissions,
	)
	return err
}

func (r *roleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}

func collectRoles(rows pgx.Rows) ([]models.Role, error) {
	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.ServerID, &role.Name, &role.Tag, &role.Color, &role.Kind, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
