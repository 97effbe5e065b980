package admins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/salonmonarch/booking/libs/auth"
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

var (
	ErrRegistrationClosed = errors.New("admin registration is disabled")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLen = 6

type Store interface {
	CreateAdmin(ctx context.Context, a model.Admin) error
	AdminByEmail(ctx context.Context, email string) (model.Admin, error)
	AdminByID(ctx context.Context, id string) (model.Admin, error)
}

type Options struct {
	RegistrationEnabled bool
	StoreTimeout        time.Duration
	Now                 func() time.Time
	Logger              *slog.Logger
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service manages staff accounts and issues their access tokens.
type Service struct {
	store        Store
	issuer       *auth.Issuer
	validate     *validator.Validate
	registration bool
	storeTimeout time.Duration
	cost         int
	now          func() time.Time
	logger       *slog.Logger
	// dummyHash is compared against when an email is unknown so a failed
	// lookup costs the same as a wrong password.
	dummyHash []byte
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type Profile struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

func NewService(store Store, issuer *auth.Issuer, opts Options) *Service {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), opts.BcryptCost)
	return &Service{
		store:        store,
		issuer:       issuer,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		registration: opts.RegistrationEnabled,
		storeTimeout: opts.StoreTimeout,
		cost:         opts.BcryptCost,
		now:          opts.Now,
		logger:       opts.Logger,
		dummyHash:    dummy,
	}
}

// Register creates an admin and signs them in. It is refused unless
// registration is enabled.
func (s *Service) Register(ctx context.Context, c Credentials) (Session, error) {
	if !s.registration {
		return Session{}, ErrRegistrationClosed
	}
	admin, err := s.Create(ctx, c)
	if err != nil {
		return Session{}, err
	}
	return s.session(admin)
}

// Create stores a new admin regardless of the registration switch. The CLI
// uses it to seed the first account.
func (s *Service) Create(ctx context.Context, c Credentials) (Profile, error) {
	c.Email = model.NormalizeEmail(c.Email)
	if err := s.validate.Struct(c); err != nil {
		return Profile{}, fmt.Errorf("%w: email must be valid and password at least %d characters", model.ErrValidation, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}
	admin := model.Admin{
		ID:           uuid.NewString(),
		Email:        c.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		return Profile{}, err
	}
	s.logger.Info("admin created", "admin_id", admin.ID, "email", admin.Email)
	return profileOf(admin), nil
}

func (s *Service) Login(ctx context.Context, c Credentials) (Session, error) {
	email := model.NormalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", model.ErrValidation)
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	admin, err := s.store.AdminByEmail(sctx, email)
	cancel()
	if errors.Is(err, model.ErrAdminNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(c.Password))
		s.logger.Warn("admin login failed", "email", email, "reason", "unknown email")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(c.Password)); err != nil {
		s.logger.Warn("admin login failed", "email", email, "reason", "password mismatch")
		return Session{}, ErrInvalidCredentials
	}
	return s.session(profileOf(admin))
}

func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	admin, err := s.store.AdminByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return profileOf(admin), nil
}

func (s *Service) session(p Profile) (Session, error) {
	token, exp, err := s.issuer.Sign(p.ID, p.Email, auth.RoleAdmin)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, ExpiresAt: exp, User: p}, nil
}

func profileOf(a model.Admin) Profile {
	return Profile{ID: a.ID, Email: a.Email, CreatedAt: a.CreatedAt}
}
