package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"auth-service/internal/domain"
)

// ErrDuplicateEmail señala una violacion del indice unico sobre email.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository define el contrato de persistencia para credenciales.
// Las busquedas devuelven pgx.ErrNoRows cuando no hay registro.
type UserRepository interface {
	Create(ctx context.Context, email, hashedPassword string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetBySessionID(ctx context.Context, sessionID string) (domain.User, error)
	GetByResetToken(ctx context.Context, token string) (domain.User, error)
	Update(ctx context.Context, id int64, patch UserPatch) error
}

// UserPatch describe una actualizacion parcial campo a campo. Un puntero nil
// deja el campo como esta; los flags Clear ponen la columna en NULL.
type UserPatch struct {
	HashedPassword  *string
	SessionID       *string
	ClearSessionID  bool
	ResetToken      *string
	ClearResetToken bool
}

// Querier cubre las operaciones de pgxpool.Pool que usa el repositorio.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgUserRepository implementa UserRepository usando pgx.
type PgUserRepository struct {
	pool Querier
}

func NewPgUserRepository(pool Querier) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, email, hashedPassword string) (domain.User, error) {
	const query = `
		INSERT INTO users (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	u := domain.User{
		Email:          email,
		HashedPassword: hashedPassword,
	}
	err := r.pool.QueryRow(ctx, query, email, hashedPassword).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PgUserRepository) GetBySessionID(ctx context.Context, sessionID string) (domain.User, error) {
	return r.getBy(ctx, "session_id", sessionID)
}

func (r *PgUserRepository) GetByResetToken(ctx context.Context, token string) (domain.User, error) {
	return r.getBy(ctx, "reset_token", token)
}

func (r *PgUserRepository) getBy(ctx context.Context, column, value string) (domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, email, hashed_password, session_id, reset_token, created_at
		FROM users
		WHERE %s = $1
	`, column)
	var u domain.User
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.SessionID,
		&u.ResetToken,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Update aplica el patch sobre el registro indicado. Devuelve pgx.ErrNoRows
// si el id no existe; un patch vacio solo verifica que el registro exista.
func (r *PgUserRepository) Update(ctx context.Context, id int64, patch UserPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.HashedPassword != nil {
		add("hashed_password", *patch.HashedPassword)
	}
	switch {
	case patch.ClearSessionID:
		add("session_id", nil)
	case patch.SessionID != nil:
		add("session_id", *patch.SessionID)
	}
	switch {
	case patch.ClearResetToken:
		add("reset_token", nil)
	case patch.ResetToken != nil:
		add("reset_token", *patch.ResetToken)
	}

	if len(sets) == 0 {
		var found int64
		return r.pool.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, id).Scan(&found)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
