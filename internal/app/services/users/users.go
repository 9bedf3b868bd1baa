// Package users handles accounts: registration, password login and the
// caller's own profile. Token issuing stays with the HTTP layer.
package users

import (
	"context"
	"errors"

	loginstore "github.com/dalemusser/planhub/internal/app/store/logins"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/app/system/inputval"
	"github.com/dalemusser/planhub/internal/app/system/normalize"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RecentLoginLimit caps the sign-in history returned to a user.
const RecentLoginLimit = 20

// MaxUserAgentBytes caps the stored User-Agent header.
const MaxUserAgentBytes = 512

type Service struct {
	users  *userstore.Store
	logins *loginstore.Store
	logger *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{users: userstore.New(db), logins: loginstore.New(db), logger: logger}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,useremail" label:"Email"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
	FullName string `json:"fullName" validate:"notblank,max=200" label:"Full name"`
}

// Register creates the account. A taken email is a Conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if res := inputval.Validate(in); res.HasErrors() {
		return models.User{}, apperr.BadRequest("%s", res.First())
	}
	hash, err := userstore.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Internal("users.Register", err)
	}
	u, err := s.users.Create(ctx, models.User{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return models.User{}, apperr.Conflict("An account with this email already exists.")
	}
	if err != nil {
		return models.User{}, apperr.Internal("users.Register", err)
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

// Login checks the password. Unknown email and wrong password look the same
// to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	invalid := apperr.Unauthenticated("Invalid email or password.")
	if normalize.Email(email) == "" || password == "" {
		return models.User{}, invalid
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, invalid
	}
	if err != nil {
		return models.User{}, apperr.Internal("users.Login", err)
	}
	if !userstore.CheckPassword(u.PasswordHash, password) {
		return models.User{}, invalid
	}
	return u, nil
}

// Me returns the caller's account. A deleted account reads as
// Unauthenticated because the token no longer names anyone.
func (s *Service) Me(ctx context.Context, callerID primitive.ObjectID) (models.User, error) {
	u, err := s.users.GetByID(ctx, callerID)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, apperr.Unauthenticated("Account no longer exists.")
	}
	if err != nil {
		return models.User{}, apperr.Internal("users.Me", err)
	}
	return u, nil
}

type ProfileInput struct {
	FullName *string `json:"fullName" validate:"omitempty,max=200" label:"Full name"`
	Email    *string `json:"email" validate:"omitempty,useremail" label:"Email"`
}

// UpdateProfile changes name and/or email. Present-but-blank values are
// rejected; absent ones are left alone.
func (s *Service) UpdateProfile(ctx context.Context, callerID primitive.ObjectID, in ProfileInput) (models.User, error) {
	var upd userstore.ProfileUpdate
	if in.FullName != nil {
		if upd.FullName = normalize.Name(*in.FullName); upd.FullName == "" {
			return models.User{}, apperr.BadRequest("Full name cannot be blank.")
		}
	}
	if in.Email != nil {
		if upd.Email = normalize.Email(*in.Email); upd.Email == "" {
			return models.User{}, apperr.BadRequest("Email cannot be blank.")
		}
	}
	if res := inputval.Validate(in); res.HasErrors() {
		return models.User{}, apperr.BadRequest("%s", res.First())
	}

	u, err := s.users.UpdateProfile(ctx, callerID, upd)
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return models.User{}, apperr.Conflict("An account with this email already exists.")
	case errors.Is(err, userstore.ErrNotFound):
		return models.User{}, apperr.Unauthenticated("Account no longer exists.")
	case err != nil:
		return models.User{}, apperr.Internal("users.UpdateProfile", err)
	}
	return u, nil
}

type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required" label:"Current password"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72" label:"New password"`
}

func (s *Service) ChangePassword(ctx context.Context, callerID primitive.ObjectID, in PasswordInput) error {
	if res := inputval.Validate(in); res.HasErrors() {
		return apperr.BadRequest("%s", res.First())
	}
	u, err := s.Me(ctx, callerID)
	if err != nil {
		return err
	}
	if !userstore.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return apperr.BadRequest("Current password is incorrect.")
	}
	hash, err := userstore.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal("users.ChangePassword", err)
	}
	if err := s.users.SetPasswordHash(ctx, callerID, hash); err != nil {
		return apperr.Wrap("users.ChangePassword", err)
	}
	s.logger.Info("password changed", zap.String("user_id", callerID.Hex()))
	return nil
}

// RecordLogin stores a sign-in for the history view. A failed write is
// logged and otherwise ignored; it never blocks the sign-in.
func (s *Service) RecordLogin(ctx context.Context, userID primitive.ObjectID, method, ip, userAgent string) {
	userAgent = normalize.Truncate(userAgent, MaxUserAgentBytes)
	_, err := s.logins.Create(ctx, models.LoginRecord{
		UserID:    userID,
		Method:    method,
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		s.logger.Warn("record login failed", zap.String("user_id", userID.Hex()), zap.Error(err))
	}
}

// RecentLogins returns the caller's latest sign-ins, newest first.
func (s *Service) RecentLogins(ctx context.Context, callerID primitive.ObjectID) ([]models.LoginRecord, error) {
	recs, err := s.logins.ListByUser(ctx, callerID, RecentLoginLimit)
	if err != nil {
		return nil, apperr.Internal("users.RecentLogins", err)
	}
	return recs, nil
}
