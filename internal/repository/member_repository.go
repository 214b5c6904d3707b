package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

// MemberRepository defines persistence access for member accounts. It is the
// boundary to the member-management collaborator; the session core only
// reads identities and password hashes through it.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Member, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a Postgres-backed implementation.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

func (r *memberRepository) Create(ctx context.Context, member *domain.Member) error {
	const query = `
        INSERT INTO members (name, email, password_hash, role, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		member.Name,
		member.Email,
		member.PasswordHash,
		member.Role,
		member.Status,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, created_at, updated_at
        FROM members WHERE id=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, created_at, updated_at
        FROM members WHERE email=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *memberRepository) List(ctx context.Context, limit, offset int) ([]*domain.Member, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, created_at, updated_at
        FROM members ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*domain.Member, 0)
	for rows.Next() {
		var member domain.Member
		if err := rows.Scan(
			&member.ID,
			&member.Name,
			&member.Email,
			&member.PasswordHash,
			&member.Role,
			&member.Status,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, &member)
	}
	return members, rows.Err()
}

func (r *memberRepository) scanOne(row pgx.Row) (*domain.Member, error) {
	var member domain.Member
	if err := row.Scan(
		&member.ID,
		&member.Name,
		&member.Email,
		&member.PasswordHash,
		&member.Role,
		&member.Status,
		&member.CreatedAt,
		&member.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &member, nil
}
