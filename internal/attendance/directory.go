package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// NewUser is the input for creating an account.
type NewUser struct {
	Email    string
	Name     string
	Role     models.Role
	Password string
}

// UserUpdate carries optional changes to an account; nil fields are kept.
type UserUpdate struct {
	Email    *string
	Name     *string
	Role     *models.Role
	Password *string
}

// Directory manages accounts and credential checks.
type Directory struct {
	store    storage.Store
	logger   *slog.Logger
	now      Clock
	hashCost int
}

// NewDirectory wires a Directory. A nil clock uses time.Now.
func NewDirectory(store storage.Store, logger *slog.Logger, clock Clock) *Directory {
	return &Directory{store: store, logger: logger, now: orNow(clock), hashCost: bcrypt.DefaultCost}
}

// CreateUser validates and stores a new account with a hashed password.
func (d *Directory) CreateUser(ctx context.Context, in NewUser) (models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if err := validateUser(email, name, in.Role); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return models.User{}, err
	}
	hash, err := d.hashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    d.now(),
	}
	created, err := d.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	d.logger.Info("user created", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// UpdateUser applies the non-nil fields of upd to an existing account.
func (d *Directory) UpdateUser(ctx context.Context, id string, upd UserUpdate) (models.User, error) {
	user, err := d.store.FindUserByID(ctx, id)
	if err != nil {
		return models.User{}, notFound(err, "user")
	}
	if upd.Email != nil {
		user.Email = normalizeEmail(*upd.Email)
	}
	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if err := validateUser(user.Email, user.Name, user.Role); err != nil {
		return models.User{}, err
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return models.User{}, err
		}
		hash, err := d.hashPassword(*upd.Password)
		if err != nil {
			return models.User{}, err
		}
		user.PasswordHash = hash
	}

	updated, err := d.store.UpdateUser(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return models.User{}, ErrDuplicateEmail
		case errors.Is(err, storage.ErrNotFound):
			return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
		default:
			return models.User{}, fmt.Errorf("update user: %w", err)
		}
	}
	return updated, nil
}

// GetUser fetches one account by id.
func (d *Directory) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := d.store.FindUserByID(ctx, id)
	if err != nil {
		return models.User{}, notFound(err, "user")
	}
	return user, nil
}

// ListUsers returns every account.
func (d *Directory) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes an account along with all of its entries and requests.
func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	res, err := d.store.DeleteUser(ctx, id)
	if err != nil {
		return notFound(err, "user")
	}
	d.logger.Info("user deleted", "user_id", id, "entries", res.Entries, "requests", res.Requests)
	return nil
}

// Authenticate returns the account matching email and password and stamps its
// last login. A mismatch is reported as ok=false with a nil error.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (models.User, bool, error) {
	user, err := d.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, false, nil
	}

	now := d.now()
	user.LastLogin = &now
	updated, err := d.store.UpdateUser(ctx, user)
	if err != nil {
		return models.User{}, false, fmt.Errorf("stamp last login: %w", err)
	}
	return updated, true, nil
}

// DefaultUsers are created by SeedDefaults on an empty directory.
var DefaultUsers = []NewUser{
	{Email: "admin@syncink.com", Name: "Admin User", Role: models.RoleAdmin, Password: "admin123"},
	{Email: "john@syncink.com", Name: "John Doe", Role: models.RoleEmployee, Password: "john123"},
	{Email: "jane@syncink.com", Name: "Jane Smith", Role: models.RoleEmployee, Password: "jane123"},
}

// SeedDefaults creates DefaultUsers when no account exists yet and reports how
// many were created.
func (d *Directory) SeedDefaults(ctx context.Context) (int, error) {
	users, err := d.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(users) > 0 {
		return 0, nil
	}
	for i, u := range DefaultUsers {
		if _, err := d.CreateUser(ctx, u); err != nil {
			return i, fmt.Errorf("seed %s: %w", u.Email, err)
		}
	}
	return len(DefaultUsers), nil
}

func (d *Directory) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUser(email, name string, role models.Role) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidUser)
	}
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidUser)
	}
	return nil
}
