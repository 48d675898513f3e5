package services

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	model "github.com/assignmate/AssignMate/models"
	"github.com/assignmate/AssignMate/utils"
)

// ErrInvalidCredentials covers both unknown emails and wrong passwords so
// login failures are indistinguishable to the caller.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials")

// AuthService handles registration and login for the identity provider.
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register validates and creates a new user with a bcrypt password hash.
func (s *AuthService) Register(in RegisterInput) (*model.User, error) {
	fields := make(map[string]string)
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	if len(in.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var existing model.User
	if err := s.db.Where("email = ?", in.Email).First(&existing).Error; err == nil {
		return nil, &ValidationError{Fields: map[string]string{"email": "email is already registered"}}
	} else if err != gorm.ErrRecordNotFound {
		log.Printf("[Register] Error checking existing email: %v", err)
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.db.Create(&user).Error; err != nil {
		log.Printf("[Register] Error creating user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Printf("[Register] User %s registered", user.ID)

	return &user, nil
}

// Login verifies the credentials and issues a JWT.
func (s *AuthService) Login(email, password string) (string, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrInvalidCredentials
		}
		log.Printf("[Login] Error fetching user: %v", err)
		return "", fmt.Errorf("failed to fetch user: %w", err)
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("[Login] Error signing token: %v", err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
