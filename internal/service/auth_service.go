package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"auth-service/internal/domain"
	"auth-service/internal/email"
	"auth-service/internal/repository"
)

var (
	ErrEmailTaken        = errors.New("email already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidResetToken = errors.New("invalid reset token")
)

// AuthService coordina registro, sesiones y reset de contraseñas sobre el
// repositorio de credenciales. No guarda estado propio: toda decision relee
// del repositorio.
type AuthService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	mail       email.Sender
	bcryptCost int
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, mail email.Sender, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		logger:     logger,
		users:      users,
		mail:       mail,
		bcryptCost: bcryptCost,
	}
}

// Register crea una credencial nueva con hash bcrypt de la contraseña.
func (s *AuthService) Register(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.User{}, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, emailAddr, string(hashBytes))
	if err != nil {
		// El indice unico cierra la carrera entre el chequeo previo y el insert.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// ValidateLogin verifica las credenciales. Un email desconocido no es un
// error: devuelve false.
func (s *AuthService) ValidateLogin(ctx context.Context, emailAddr, password string) (bool, error) {
	if s.users == nil {
		return false, errors.New("auth service not configured")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	// CompareHashAndPassword usa el salt embebido en el hash almacenado.
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// CreateSession emite un id de sesion nuevo y lo persiste, pisando cualquier
// sesion previa del usuario.
func (s *AuthService) CreateSession(ctx context.Context, emailAddr string) (string, error) {
	if s.users == nil {
		return "", errors.New("auth service not configured")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	sessionID := uuid.NewString()
	if err := s.users.Update(ctx, user.ID, repository.UserPatch{SessionID: &sessionID}); err != nil {
		return "", err
	}
	return sessionID, nil
}

// GetUserBySessionID resuelve la sesion a su usuario. Una sesion vacia o
// desconocida no es un error: devuelve nil.
func (s *AuthService) GetUserBySessionID(ctx context.Context, sessionID string) (*domain.User, error) {
	if s.users == nil {
		return nil, errors.New("auth service not configured")
	}
	if sessionID == "" {
		return nil, nil
	}

	user, err := s.users.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// DestroySession limpia el id de sesion del usuario indicado.
func (s *AuthService) DestroySession(ctx context.Context, userID int64) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}

	err := s.users.Update(ctx, userID, repository.UserPatch{ClearSessionID: true})
	if errors.Is(err, pgx.ErrNoRows) {
		// El caller ya resolvio al usuario via sesion; un registro ausente
		// equivale a una sesion ya destruida.
		return nil
	}
	return err
}

// RequestPasswordReset emite un token de reset y lo persiste, invalidando
// cualquier token pendiente.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	if s.users == nil {
		return "", errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	token := uuid.NewString()
	if err := s.users.Update(ctx, user.ID, repository.UserPatch{ResetToken: &token}); err != nil {
		return "", err
	}

	// El envio de correo es best-effort: el token ya quedo persistido y se
	// devuelve igual al caller.
	if s.mail != nil {
		if err := s.mail.SendPasswordReset(ctx, emailAddr, token); err != nil {
			if s.logger != nil {
				s.logger.Warn("send password reset mail failed", zap.Error(err), zap.String("email", emailAddr))
			}
		}
	}
	return token, nil
}

// ConsumePasswordReset cambia la contraseña y consume el token en una sola
// actualizacion, de modo que el token nunca pueda reutilizarse.
func (s *AuthService) ConsumePasswordReset(ctx context.Context, token, newPassword string) error {
	if s.users == nil {
		return errors.New("auth service not configured")
	}
	if token == "" {
		return ErrInvalidResetToken
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidResetToken
		}
		return err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return err
	}

	hashed := string(hashBytes)
	return s.users.Update(ctx, user.ID, repository.UserPatch{
		HashedPassword:  &hashed,
		ClearResetToken: true,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
