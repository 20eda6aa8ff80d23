package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"chatrelay/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService is the in-process identity collaborator: it registers users and
// turns a verified credential into (user id, email). The relay core trusts
// this mapping and never re-validates credentials itself.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

func (s *UserService) Register(creds *Credentials) (*model.User, error) {
	if creds.Username == "" || !isValidEmail(creds.Email) || len(creds.Password) < 8 {
		return nil, fmt.Errorf("%w: username, valid email and a password of 8+ chars are required", ErrInvalidArgument)
	}

	var count int64
	if err := s.db.Model(&model.User{}).
		Where("username = ? OR email = ?", creds.Username, creds.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: user already exists", ErrInvalidArgument)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: creds.Username,
		Email:    creds.Email,
		Password: string(hashedPassword),
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(username, password string) (string, error) {
	var user model.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: unknown user", ErrAuthentication)
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	}

	ts := &TokenService{}
	token, err := ts.CreateToken(user.ID, user.Username)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Resolve looks up a user by id.
func (s *UserService) Resolve(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}
