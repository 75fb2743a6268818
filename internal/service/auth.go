package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	revoker   Revoker
	logger    *zap.Logger
}

func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, revoker Revoker, logger *zap.Logger) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		revoker:   revoker,
		logger:    logger,
	}
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, req types.RegisterRequest) (*models.User, error) {
	return s.createUser(ctx, req, models.RoleUser)
}

// CreateAdmin creates an account with the admin role.
func (s *AuthService) CreateAdmin(ctx context.Context, req types.RegisterRequest) (*models.User, error) {
	return s.createUser(ctx, req, models.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, req types.RegisterRequest, role string) (*models.User, error) {
	db := s.db.WithContext(ctx)
	v := &ValidationError{}

	if !usernamePattern.MatchString(req.Username) {
		v.Add("username", "enter a valid username; only letters, digits and @/./+/-/_ are allowed")
	} else if req.Username == "me" {
		v.Add("username", "this username is reserved")
	}
	if len(req.Password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		v.Add("username", "a user with that username already exists")
	}
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		v.Add("email", "a user with that email already exists")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, invalid("username", "a user with that username or email already exists")
		}
		return nil, err
	}

	s.logger.Info("Registered user", zap.Uint("user_id", user.ID), zap.String("role", role))
	return &user, nil
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", invalid("non_field_errors", "unable to log in with provided credentials")
	}

	return s.IssueToken(&user)
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := types.TokenClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken checks the signature and expiry of a token.
func (s *AuthService) ValidateToken(tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a token to the actor it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (Actor, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return Anonymous(), err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Anonymous(), err
	}
	if revoked {
		return Anonymous(), ErrInvalidToken
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Anonymous(), ErrInvalidToken
		}
		return Anonymous(), err
	}

	return Actor{UserID: user.ID, IsAdmin: user.IsAdmin()}, nil
}

// Logout revokes the token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}

	s.logger.Info("Revoked token", zap.Uint("user_id", claims.UserID))
	return nil
}

func (s *AuthService) SetPassword(ctx context.Context, actor Actor, req types.SetPasswordRequest) error {
	if err := requireAuth(actor); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, actor.UserID).Error; err != nil {
		return translate(err, "user")
	}

	v := &ValidationError{}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		v.Add("current_password", "wrong password")
	}
	if len(req.NewPassword) < minPasswordLength {
		v.Add("new_password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if err := v.Err(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Model(&user).Update("password_hash", string(hash)).Error
}
