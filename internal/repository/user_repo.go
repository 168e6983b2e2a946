package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"satya-chat/internal/domain"
)

// UserRepository define el contrato de lectura sobre la tabla de usuarios.
// La escritura pertenece al sistema de identidad externo.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	SearchNewContacts(ctx context.Context, requesterID int64, term string, limit int) ([]domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `
		SELECT user_id, username,
		       COALESCE(fname, ''), COALESCE(lname, ''),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(photo, ''), COALESCE(bio, '')
		FROM users
		WHERE user_id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Phone,
		&u.Photo,
		&u.Bio,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}

// SearchNewContacts devuelve usuarios que coinciden con el término y que
// todavía no tienen ninguna conversación con el solicitante. El límite
// acota el escaneo sobre la tabla de usuarios.
func (r *PgUserRepository) SearchNewContacts(ctx context.Context, requesterID int64, term string, limit int) ([]domain.User, error) {
	const query = `
		SELECT u.user_id, u.username, COALESCE(u.email, ''), COALESCE(u.photo, '')
		FROM users u
		WHERE (u.username ILIKE $1 OR u.email ILIKE $1)
		  AND u.user_id <> $2
		  AND u.user_id NOT IN (
			SELECT cp2.user_id
			FROM conversation_participants cp
			JOIN conversation_participants cp2 ON cp.conversation_id = cp2.conversation_id
			WHERE cp.user_id = $2 AND cp2.user_id <> $2
		  )
		ORDER BY u.username
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, "%"+term+"%", requesterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Photo); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
