package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/messagely-be/internal/common"
	"github.com/isdelr/messagely-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	UpdateLastAuthenticated(ctx context.Context, username string) error
	Register(ctx context.Context, in RegisterInput) (models.User, error)
	GetAll(ctx context.Context) ([]models.UserSummary, error)
	Get(ctx context.Context, username string) (models.User, error)
	Exists(ctx context.Context, username string) (bool, error)
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// UserService is the credential store adapter: it owns password hashes and
// the user directory.
type UserService struct {
	db        *sql.DB
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// NewUserService creates a new UserService hashing with the given bcrypt cost.
func NewUserService(db *sql.DB, cost int) (*UserService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	// compared against for unknown usernames so both paths cost one bcrypt run
	dummy, err := bcrypt.GenerateFromPassword([]byte("messagely-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash dummy password: %w", err)
	}
	return &UserService{
		db:        db,
		cost:      cost,
		dummyHash: dummy,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords produce the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.getWithHash(ctx, username)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return models.User{}, err
		}
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return models.User{}, common.ErrInvalidCredentials
	}

	if user.PasswordHash == "" {
		return models.User{}, common.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, common.ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// UpdateLastAuthenticated records the current time as the user's last login.
func (s *UserService) UpdateLastAuthenticated(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET last_authenticated_at = ? WHERE username = ?", s.now(), username)
	if err != nil {
		return fmt.Errorf("update last authenticated: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update last authenticated for %s: %w", username, common.ErrNotFound)
	}
	return nil
}

// Register creates a new user, hashing their password. The username primary
// key makes concurrent registrations of the same name fail in storage.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)

	missing := missingFields(
		[2]string{"username", in.Username},
		[2]string{"password", in.Password},
		[2]string{"first_name", in.FirstName},
		[2]string{"last_name", in.LastName},
		[2]string{"phone", in.Phone},
	)
	if len(missing) > 0 {
		return models.User{}, fmt.Errorf("%w: missing %s", common.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if err := validateUsername(in.Username); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return models.User{}, fmt.Errorf("%w: password too long", common.ErrInvalidInput)
		}
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := models.User{
		Username:            in.Username,
		PasswordHash:        string(hashedPassword),
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Phone:               in.Phone,
		JoinedAt:            now,
		LastAuthenticatedAt: &now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, phone, joined_at, last_authenticated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.JoinedAt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("register %s: %w", in.Username, common.ErrDuplicateIdentity)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// GetAll lists the user directory.
func (s *UserService) GetAll(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT username, first_name, last_name, phone FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Get retrieves a single user without the password hash.
func (s *UserService) Get(ctx context.Context, username string) (models.User, error) {
	user, err := s.getWithHash(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Exists reports whether username has an account.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE username = ?", username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) getWithHash(ctx context.Context, username string) (models.User, error) {
	var user models.User
	var lastAuth sql.NullTime
	row := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, first_name, last_name, phone, joined_at, last_authenticated_at
		FROM users WHERE username = ?`, username)
	err := row.Scan(&user.Username, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Phone, &user.JoinedAt, &lastAuth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", username, common.ErrNotFound)
		}
		return models.User{}, err
	}
	user.JoinedAt = user.JoinedAt.UTC()
	user.LastAuthenticatedAt = nullTime(lastAuth)
	return user, nil
}
