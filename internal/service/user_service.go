package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"savefood/internal/model"
	"savefood/internal/repository"
	"savefood/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type SignupRequest struct {
	Username        string `json:"username" binding:"required,max=150"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FullName        string `json:"full_name" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	PinCode         string `json:"pin_code" binding:"required"`
	District        string `json:"district" binding:"required"`
	FullAddress     string `json:"full_address"`
	UserType        string `json:"user_type"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	PinCode     string    `json:"pin_code"`
	District    string    `json:"district"`
	FullAddress string    `json:"full_address"`
	UserType    string    `json:"user_type"`
	Role        string    `json:"role"`
	CreatedAt   string    `json:"created_at"`
}

type AuthResponse struct {
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(userID uuid.UUID, role string) (string, error)
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*UserResponse, error)
}

var (
	ErrInvalidCredentials = errorx.New(errorx.CodeUnauthorized, "invalid username or password")

	fullNamePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	phonePattern    = regexp.MustCompile(`^\d{10}$`)
	pinCodePattern  = regexp.MustCompile(`^\d{6}$`)
)

type userService struct {
	repo   repository.UserRepository
	tokens TokenIssuer
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, tokens TokenIssuer) UserService {
	return &userService{repo: repo, tokens: tokens}
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		Phone:       user.Phone,
		PinCode:     user.PinCode,
		District:    user.District,
		FullAddress: user.FullAddress,
		UserType:    user.UserType,
		Role:        user.Role(),
		CreatedAt:   user.CreatedAt.Format(timeLayout),
	}
}

// validateSignup normalizes req in place
func validateSignup(req *SignupRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	if !fullNamePattern.MatchString(req.FullName) {
		return errorx.New(errorx.CodeInvalidParam, "full name should only contain letters and spaces")
	}
	if len(req.FullName) < 2 {
		return errorx.New(errorx.CodeInvalidParam, "full name must be at least 2 characters")
	}
	if !phonePattern.MatchString(req.Phone) {
		return errorx.New(errorx.CodeInvalidParam, "phone number must be exactly 10 digits")
	}
	if !pinCodePattern.MatchString(req.PinCode) {
		return errorx.New(errorx.CodeInvalidParam, "pin code must be exactly 6 digits")
	}
	if !model.IsChoice(model.Districts, req.District) {
		return errorx.Newf(errorx.CodeInvalidParam, "invalid district %q", req.District)
	}
	if req.UserType == "" {
		req.UserType = model.UserTypeCitizen
	}
	if !model.IsChoice(model.UserTypes, req.UserType) {
		return errorx.Newf(errorx.CodeInvalidParam, "invalid user type %q", req.UserType)
	}
	if req.Password != req.ConfirmPassword {
		return errorx.New(errorx.CodeInvalidParam, "passwords do not match")
	}
	return nil
}

func (s *userService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := validateSignup(&req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "a user with that username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "a user with this email already exists")
	}
	if _, err := s.repo.GetByPhone(ctx, req.Phone); err == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "a user with this phone number already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "failed to hash password")
	}

	user := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    string(hashedPassword),
		FullName:    req.FullName,
		Phone:       req.Phone,
		PinCode:     req.PinCode,
		District:    req.District,
		FullAddress: req.FullAddress,
		UserType:    req.UserType,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorx.New(errorx.CodeInvalidParam, "user already exists")
		}
		return nil, errorx.Wrap(err, errorx.CodeDBError, "failed to create user")
	}
	zap.L().Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("user_type", user.UserType))

	return s.authResponse(user, user.Role(), "Account created successfully.")
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := authenticate(ctx, s.repo, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return s.authResponse(user, user.Role(), "Login successful.")
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errorx.New(errorx.CodeNotFound, "user not found"), "failed to load user")
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) authResponse(user *model.User, role, message string) (*AuthResponse, error) {
	token, err := s.tokens.IssueToken(user.ID, role)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "failed to generate token")
	}
	return &AuthResponse{Token: token, User: toUserResponse(user), Message: message}, nil
}

// authenticate checks username and password, hiding which one was wrong
func authenticate(ctx context.Context, repo repository.UserRepository, username, password string) (*model.User, error) {
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errorx.Wrap(err, errorx.CodeDBError, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
