package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-api/internal/config"
	"shop-api/internal/domain"
	"shop-api/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

// SignupInput carries the fields of a new member account
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Zip      string
	Addr1    string
	Addr2    string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Role         string `json:"role"`
	UserID       int64  `json:"user_id"`
}

// Principal is the account behind an access token
type Principal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// MemberService defines the interface for member and administrator
// accounts and their tokens
type MemberService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.Member, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, claims *domain.Claims) (*Principal, error)

	ListMembers(ctx context.Context) ([]*domain.Member, error)
	GetMember(ctx context.Context, id int64) (*domain.Member, error)
	UpdateMember(ctx context.Context, id int64, update domain.MemberUpdate) (*domain.Member, error)
	DeleteMember(ctx context.Context, id int64) (*domain.Member, error)

	EnsureAdministrator(ctx context.Context, name, email, password string) (*domain.Administrator, error)
}

type memberService struct {
	members       repository.MemberRepository
	admins        repository.AdministratorRepository
	refreshTokens repository.RefreshTokenRepository
	tx            repository.Transactor
	jwt           config.JWTConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewMemberService creates a new instance of MemberService
func NewMemberService(
	members repository.MemberRepository,
	admins repository.AdministratorRepository,
	refreshTokens repository.RefreshTokenRepository,
	tx repository.Transactor,
	jwtConfig config.JWTConfig,
	logger *zap.Logger,
) MemberService {
	return &memberService{
		members:       members,
		admins:        admins,
		refreshTokens: refreshTokens,
		tx:            tx,
		jwt:           jwtConfig,
		logger:        logger,
		now:           time.Now,
	}
}

// Signup creates a member account with a hashed password
func (s *memberService) Signup(ctx context.Context, in SignupInput) (*domain.Member, error) {
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, invalid("name, email and password are required")
	}

	if _, err := s.members.FindByEmail(ctx, in.Email); err == nil {
		return nil, wrap(ErrConflict, repository.ErrMemberAlreadyExists)
	} else if !errors.Is(err, repository.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to check existing member: %w", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	member := &domain.Member{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Zip:          in.Zip,
		Addr1:        in.Addr1,
		Addr2:        in.Addr2,
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrMemberAlreadyExists) {
			return nil, wrap(ErrConflict, err)
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.logger.Info("Member signed up", zap.Int64("member_id", member.ID))
	return member, nil
}

// Login checks the administrator table first, then members. An email
// found among administrators is never retried as a member.
func (s *memberService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	subjectID, role, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.generateAccessToken(subjectID, role, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, role, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.logger.Info("Login succeeded", zap.Int64("user_id", subjectID), zap.String("role", role))
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.jwt.AccessExpiry * 60,
		Role:         role,
		UserID:       subjectID,
	}, nil
}

func (s *memberService) authenticate(ctx context.Context, email, password string) (int64, string, error) {
	admin, err := s.admins.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if verifyPassword(admin.PasswordHash, password) != nil {
			return 0, "", ErrInvalidCredentials
		}
		return admin.ID, domain.RoleAdmin, nil
	case !errors.Is(err, repository.ErrAdministratorNotFound):
		return 0, "", fmt.Errorf("failed to find administrator: %w", err)
	}

	member, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return 0, "", ErrInvalidCredentials
		}
		return 0, "", fmt.Errorf("failed to find member: %w", err)
	}
	if verifyPassword(member.PasswordHash, password) != nil {
		return 0, "", ErrInvalidCredentials
	}
	return member.ID, domain.RoleMember, nil
}

// Refresh issues a new access token for a live refresh token
func (s *memberService) Refresh(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.refreshTokens.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if s.now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	var email string
	switch refreshToken.SubjectType {
	case domain.RoleAdmin:
		admin, err := s.admins.FindByID(ctx, refreshToken.SubjectID)
		if err != nil {
			return "", wrap(ErrInvalidToken, err)
		}
		email = admin.Email
	default:
		member, err := s.members.FindByID(ctx, refreshToken.SubjectID)
		if err != nil {
			return "", wrap(ErrInvalidToken, err)
		}
		email = member.Email
	}

	accessToken, err := s.generateAccessToken(refreshToken.SubjectID, refreshToken.SubjectType, email)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token. Unknown tokens count as logged out.
func (s *memberService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokens.Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// ParseAccessToken validates the signature and expiry of an access token
func ParseAccessToken(tokenString, secret string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, wrap(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CurrentUser resolves the token subject in the table matching its role
func (s *memberService) CurrentUser(ctx context.Context, claims *domain.Claims) (*Principal, error) {
	if claims.Role == domain.RoleAdmin {
		admin, err := s.admins.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrAdministratorNotFound) {
				return nil, wrap(ErrNotFound, err)
			}
			return nil, fmt.Errorf("failed to get administrator: %w", err)
		}
		return &Principal{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: domain.RoleAdmin}, nil
	}

	member, err := s.GetMember(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &Principal{ID: member.ID, Name: member.Name, Email: member.Email, Role: domain.RoleMember}, nil
}

func (s *memberService) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (s *memberService) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, wrap(ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// UpdateMember applies the present fields only. A new password is hashed
// and revokes every outstanding refresh token of the member.
func (s *memberService) UpdateMember(ctx context.Context, id int64, update domain.MemberUpdate) (*domain.Member, error) {
	var member *domain.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		member, err = s.GetMember(ctx, id)
		if err != nil {
			return err
		}

		if update.Name != nil {
			member.Name = *update.Name
		}
		if update.Zip != nil {
			member.Zip = *update.Zip
		}
		if update.Addr1 != nil {
			member.Addr1 = *update.Addr1
		}
		if update.Addr2 != nil {
			member.Addr2 = *update.Addr2
		}
		if update.Password != nil {
			hash, err := hashPassword(*update.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			member.PasswordHash = hash
			if err := s.refreshTokens.RevokeAllForSubject(ctx, domain.RoleMember, id); err != nil {
				return err
			}
		}

		if err := s.members.Update(ctx, member); err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return wrap(ErrNotFound, err)
			}
			return fmt.Errorf("failed to update member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// DeleteMember removes a member and returns the deleted record
func (s *memberService) DeleteMember(ctx context.Context, id int64) (*domain.Member, error) {
	var member *domain.Member
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if member, err = s.GetMember(ctx, id); err != nil {
			return err
		}
		if err := s.members.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return wrap(ErrNotFound, err)
			}
			return fmt.Errorf("failed to delete member: %w", err)
		}
		return s.refreshTokens.RevokeAllForSubject(ctx, domain.RoleMember, id)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Member deleted", zap.Int64("member_id", id))
	return member, nil
}

// EnsureAdministrator creates the administrator if the email is not taken
// yet and returns the stored account either way
func (s *memberService) EnsureAdministrator(ctx context.Context, name, email, password string) (*domain.Administrator, error) {
	if email == "" || password == "" {
		return nil, invalid("administrator email and password are required")
	}

	existing, err := s.admins.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrAdministratorNotFound) {
		return nil, fmt.Errorf("failed to find administrator: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &domain.Administrator{Name: name, Email: email, PasswordHash: hash}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAdministratorAlreadyExists) {
			return s.admins.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create administrator: %w", err)
	}

	s.logger.Info("Administrator account created", zap.Int64("admin_id", admin.ID), zap.String("email", email))
	return admin, nil
}

// hashPassword rejects passwords over 72 bytes as invalid input
func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", wrap(ErrInvalidInput, err)
		}
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken signs an HS256 token with sub, role and user_id
func (s *memberService) generateAccessToken(userID int64, role, email string) (string, error) {
	now := s.now()
	claims := &domain.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.jwt.AccessExpiry) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwt.Secret))
}

// generateRefreshToken stores an opaque refresh token for the subject
func (s *memberService) generateRefreshToken(ctx context.Context, subjectType string, subjectID int64) (string, error) {
	now := s.now()
	refreshToken := &domain.RefreshToken{
		ID:          uuid.New(),
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Token:       uuid.NewString(),
		ExpiresAt:   now.Add(time.Duration(s.jwt.RefreshExpiry) * 24 * time.Hour),
		CreatedAt:   now,
	}

	if err := s.refreshTokens.Create(ctx, refreshToken); err != nil {
		return "", err
	}
	return refreshToken.Token, nil
}
