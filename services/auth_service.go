package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/meinhoongagan/vetcare-app/models"
)

const (
	refreshTokenTTL  = 7 * 24 * time.Hour
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AuthService struct {
	users  UserRepository
	events SecurityEventRepository
	log    *zap.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users UserRepository, events SecurityEventRepository, log *zap.Logger, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, events: events, log: log, secret: secret, ttl: ttl, now: time.Now}
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

type RegisterInput struct {
	Name     string      `json:"name" validate:"required,max=100"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Phone    string      `json:"phone" validate:"max=30"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=owner clinic_admin"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenPair struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

// Register creates an owner or clinic admin. Admin accounts come from CreateAdmin only.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleOwner
	}
	return s.create(ctx, in.Name, in.Email, in.Password, in.Phone, role)
}

func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := Validate(RegisterInput{Name: name, Email: email, Password: password}); err != nil {
		return nil, err
	}
	return s.create(ctx, name, email, password, "", models.RoleAdmin)
}

func (s *AuthService) create(ctx context.Context, name, email, password, phone string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Phone:    phone,
		Role:     role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

func (s *AuthService) recordEvent(ctx context.Context, typ models.SecurityEventType, userID *uint, ip, details string) {
	e := &models.SecurityEvent{Type: typ, UserID: userID, IPAddress: ip, Details: details, CreatedAt: s.now()}
	if err := s.events.Create(ctx, e); err != nil {
		s.log.Error("security event not recorded", zap.String("type", string(typ)), zap.Error(err))
	}
}

// Login checks credentials and issues an access/refresh pair. Failures are audited.
func (s *AuthService) Login(ctx context.Context, in LoginInput, ip string) (*TokenPair, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordEvent(ctx, models.EventLoginFailed, nil, ip, "unknown email "+email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		s.recordEvent(ctx, models.EventLoginFailed, &u.ID, ip, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if u.IsBanned {
		s.recordEvent(ctx, models.EventLoginBlocked, &u.ID, ip, u.BanReason)
		return nil, ErrUserBanned
	}

	now := s.now()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		s.log.Warn("last login not stored", zap.Uint("user_id", u.ID), zap.Error(err))
	}
	return s.issuePair(u)
}

func (s *AuthService) issuePair(u *models.User) (*TokenPair, error) {
	access, err := s.sign(u, tokenTypeAccess, s.ttl)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(u, tokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Token: access, RefreshToken: refresh, User: u}, nil
}

func (s *AuthService) sign(u *models.User, typ string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":   u.ID,
		"role": string(u.Role),
		"typ":  typ,
		"exp":  s.now().Add(ttl).Unix(),
	}
	if u.ClinicID != nil {
		claims["clinic_id"] = *u.ClinicID
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new pair built from the current user row.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != tokenTypeRefresh {
		return nil, ErrInvalidCredentials
	}
	id, ok := claims["id"].(float64)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	u, err := s.CurrentUser(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	return s.issuePair(u)
}

// CurrentUser reloads the account behind a token; banned accounts are refused.
func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.IsBanned {
		return nil, ErrUserBanned
	}
	return u, nil
}

// CallerFor turns a user row into the identity services authorize against.
func CallerFor(u *models.User) Caller {
	return Caller{UserID: u.ID, Role: u.Role, ClinicID: u.ClinicID}
}
