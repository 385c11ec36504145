package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, price, category, veg_nonveg, meal_type,
    availability_time, image_url, is_available, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.VegNonveg,
		&i.MealType,
		&i.AvailabilityTime,
		&i.ImageUrl,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE ($1::text IS NULL OR category = $1)
  AND ($2::bool OR is_available = true)
ORDER BY category, name
`

type ListMenuItemsParams struct {
	Category           pgtype.Text
	IncludeUnavailable bool
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.Category, arg.IncludeUnavailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	return scanMenuItem(row)
}

const getMenuItemForOrder = `-- name: GetMenuItemForOrder :one
SELECT id, name, price, is_available
FROM menu_items
WHERE id = $1
`

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, id)
	var i GetMenuItemForOrderRow
	err := row.Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable)
	return i, err
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (name, description, price, category, veg_nonveg, meal_type,
    availability_time, image_url, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name             string
	Description      string
	Price            pgtype.Numeric
	Category         string
	VegNonveg        string
	MealType         string
	AvailabilityTime string
	ImageUrl         pgtype.Text
	IsAvailable      bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.VegNonveg,
		arg.MealType,
		arg.AvailabilityTime,
		arg.ImageUrl,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items
SET name = $2, description = $3, price = $4, category = $5, veg_nonveg = $6,
    meal_type = $7, availability_time = $8, image_url = $9, is_available = $10,
    updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID               uuid.UUID
	Name             string
	Description      string
	Price            pgtype.Numeric
	Category         string
	VegNonveg        string
	MealType         string
	AvailabilityTime string
	ImageUrl         pgtype.Text
	IsAvailable      bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.VegNonveg,
		arg.MealType,
		arg.AvailabilityTime,
		arg.ImageUrl,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const deleteMenuItem = `-- name: DeleteMenuItem :one
DELETE FROM menu_items
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}
