package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, first_name, last_name, phone, is_active, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FirstName,
		&i.LastName,
		&i.Phone,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, hashed_password, first_name, last_name, phone)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Phone          pgtype.Text `json:"phone"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.HashedPassword,
		arg.FirstName,
		arg.LastName,
		arg.Phone,
	)
	return scanUser(row)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const updateUserProfile = `-- name: UpdateUserProfile :one
UPDATE users
SET first_name = $2, last_name = $3, phone = $4, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	ID        uuid.UUID   `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     pgtype.Text `json:"phone"`
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserProfile, arg.ID, arg.FirstName, arg.LastName, arg.Phone))
}

const setUserActive = `-- name: SetUserActive :one
UPDATE users
SET is_active = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type SetUserActiveParams struct {
	ID       uuid.UUID `json:"id"`
	IsActive bool      `json:"is_active"`
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setUserActive, arg.ID, arg.IsActive))
}

const customerFilter = `
WHERE $1::text IS NULL
   OR u.email ILIKE '%' || $1 || '%'
   OR u.first_name ILIKE '%' || $1 || '%'
   OR u.last_name ILIKE '%' || $1 || '%'`

const listCustomers = `-- name: ListCustomers :many
SELECT u.id, u.email, u.first_name, u.last_name, u.phone, u.is_active, u.created_at,
       count(o.id) AS order_count,
       max(o.created_at)::timestamptz AS last_order_at
FROM users u
LEFT JOIN orders o ON o.user_id = u.id` + customerFilter + `
GROUP BY u.id
ORDER BY u.created_at DESC
LIMIT $2 OFFSET $3
`

type ListCustomersParams struct {
	Search pgtype.Text `json:"search"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

type ListCustomersRow struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Phone       pgtype.Text        `json:"phone"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	OrderCount  int64              `json:"order_count"`
	LastOrderAt pgtype.Timestamptz `json:"last_order_at"`
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]ListCustomersRow, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCustomersRow{}
	for rows.Next() {
		var i ListCustomersRow
		if err := rows.Scan(
			&i.ID,
			&i.Email,
			&i.FirstName,
			&i.LastName,
			&i.Phone,
			&i.IsActive,
			&i.CreatedAt,
			&i.OrderCount,
			&i.LastOrderAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCustomers = `-- name: CountCustomers :one
SELECT count(*) FROM users u` + customerFilter

func (q *Queries) CountCustomers(ctx context.Context, search pgtype.Text) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countCustomers, search).Scan(&count)
	return count, err
}

// --- Admins ---

const adminColumns = `id, email, hashed_password, full_name, role, is_active, created_at, updated_at`

func scanAdmin(row rowScanner) (Admin, error) {
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAdminByEmail = `-- name: GetAdminByEmail :one
SELECT ` + adminColumns + ` FROM admins WHERE lower(email) = lower($1)
`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByEmail, email))
}

const getAdminByID = `-- name: GetAdminByID :one
SELECT ` + adminColumns + ` FROM admins WHERE id = $1
`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByID, id))
}
