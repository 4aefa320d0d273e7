package services

import (
	"errors"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/config"
	"github.com/KitaosakaSystem/webSyuhai/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EmailDomain turns a short numeric id into the synthetic handle the
// identity backend authenticates with.
const EmailDomain = "@medic.co.jp"

const (
	UserTypeCustomer = "customer"
	UserTypeStaff    = "staff"
)

var (
	ErrInvalidUserID = errors.New("user id must be 4 or 7 digits")
	ErrUserExists    = errors.New("user id already registered")
	ErrUserNotFound  = errors.New("user not found")
	ErrBadCredential = errors.New("invalid credentials")
)

// UserTypeForID classifies an id by length: 4 digits is a customer,
// 7 digits is a staff member. Anything else is rejected before any
// database access.
func UserTypeForID(userID string) (string, error) {
	if len(userID) != 4 && len(userID) != 7 {
		return "", ErrInvalidUserID
	}
	for _, r := range userID {
		if r < '0' || r > '9' {
			return "", ErrInvalidUserID
		}
	}
	if len(userID) == 4 {
		return UserTypeCustomer, nil
	}
	return UserTypeStaff, nil
}

func SyntheticEmail(userID string) string {
	return userID + EmailDomain
}

type AuthService struct {
	Db            *gorm.DB
	jwtSecret     []byte
	tokenExpiry   time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(db *gorm.DB, config *config.AuthConfig) *AuthService {
	return &AuthService{
		Db:            db,
		jwtSecret:     []byte(config.JWTSecret),
		tokenExpiry:   time.Duration(config.TokenExpiry) * time.Hour,
		refreshExpiry: time.Duration(config.RefreshExpiry) * time.Hour,
	}
}

type Claims struct {
	UserID   uint   `json:"user_id"`
	UserCode string `json:"user_code"` // 4 or 7 digit id
	UserType string `json:"user_type"`
	UserName string `json:"user_name"`
	KyotenID string `json:"kyoten_id"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateTokens(user *models.User, name, kyotenID string) (*models.AuthResponse, error) {
	// Access Token
	accessClaims := &Claims{
		UserID:   user.ID,
		UserCode: user.UserID,
		UserType: user.UserType,
		UserName: name,
		KyotenID: kyotenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	// Refresh Token
	refreshClaims := &Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.refreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenExpiry.Seconds()),
		User:         *user,
	}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// Register maps a short id to a new identity. Fails with ErrUserExists
// when the id already has one.
func (s *AuthService) Register(userID, password string) (*models.User, error) {
	userType, err := UserTypeForID(userID)
	if err != nil {
		return nil, err
	}

	var existing models.User
	if err := s.Db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		UserID:   userID,
		Email:    SyntheticEmail(userID),
		Password: string(hashedPassword),
		UserType: userType,
	}

	if err := s.Db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// Login checks the id shape before touching the database, then verifies
// the password against the stored hash.
func (s *AuthService) Login(userID, password string) (*models.User, error) {
	if _, err := UserTypeForID(userID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.Db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrBadCredential
	}

	return &user, nil
}

// LookupProfile resolves the display name and depot for an id from the
// customer or staff reference table.
func (s *AuthService) LookupProfile(userID, userType string) (name string, kyotenID string, err error) {
	switch userType {
	case UserTypeCustomer:
		var c models.Customer
		if err := s.Db.First(&c, "user_id = ?", userID).Error; err != nil {
			return "", "", err
		}
		return c.Name, c.KyotenID, nil
	case UserTypeStaff:
		var st models.Staff
		if err := s.Db.First(&st, "user_id = ?", userID).Error; err != nil {
			return "", "", err
		}
		return st.Name, st.KyotenID, nil
	}
	return "", "", ErrInvalidUserID
}
