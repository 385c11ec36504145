package database

import (
	"context"

	"github.com/google/uuid"
)

const getAdminByMobile = `-- name: GetAdminByMobile :one
SELECT id, mobile, password_hash, created_at
FROM admin_accounts
WHERE mobile = $1
`

func (q *Queries) GetAdminByMobile(ctx context.Context, mobile string) (AdminAccount, error) {
	row := q.db.QueryRow(ctx, getAdminByMobile, mobile)
	var i AdminAccount
	err := row.Scan(&i.ID, &i.Mobile, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getAdminByID = `-- name: GetAdminByID :one
SELECT id, mobile, password_hash, created_at
FROM admin_accounts
WHERE id = $1
`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (AdminAccount, error) {
	row := q.db.QueryRow(ctx, getAdminByID, id)
	var i AdminAccount
	err := row.Scan(&i.ID, &i.Mobile, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const createAdmin = `-- name: CreateAdmin :one
INSERT INTO admin_accounts (mobile, password_hash)
VALUES ($1, $2)
RETURNING id, mobile, password_hash, created_at
`

type CreateAdminParams struct {
	Mobile       string
	PasswordHash string
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (AdminAccount, error) {
	row := q.db.QueryRow(ctx, createAdmin, arg.Mobile, arg.PasswordHash)
	var i AdminAccount
	err := row.Scan(&i.ID, &i.Mobile, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const listAdmins = `-- name: ListAdmins :many
SELECT id, mobile, password_hash, created_at
FROM admin_accounts
ORDER BY created_at
`

func (q *Queries) ListAdmins(ctx context.Context) ([]AdminAccount, error) {
	rows, err := q.db.Query(ctx, listAdmins)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AdminAccount{}
	for rows.Next() {
		var i AdminAccount
		if err := rows.Scan(&i.ID, &i.Mobile, &i.PasswordHash, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
