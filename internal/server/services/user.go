// Package services contains the server-side business logic shared by the
// web UI, the gRPC API and the admin CLI.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/cryptox"
	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/auth"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/config"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cottonadvisor/internal/validation"
)

const backupCodeCount = 10

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SignupInput struct {
	Name     string `validate:"min=2" msg:"Name must be at least 2 characters long."`
	Email    string `validate:"email_address" msg:"Please enter a valid email address."`
	Password string `validate:"min=6" msg:"Password must be at least 6 characters long."`
	Confirm  string `validate:"eqfield=Password" msg:"Passwords do not match."`
	Location string `validate:"required" msg:"Please enter your farm location."`
	Phone    string
}

type ProfileInput struct {
	Name     string `validate:"required" msg:"Please fill in all required fields correctly."`
	Email    string `validate:"email_address" msg:"Please fill in all required fields correctly."`
	Location string `validate:"required" msg:"Please fill in all required fields correctly."`
	Phone    string
	Bio      string
}

type ChangePasswordInput struct {
	Current string `validate:"required" msg:"All password fields are required."`
	New     string `validate:"required" msg:"All password fields are required."`
	Confirm string `validate:"required" msg:"All password fields are required."`
}

// GoogleProfile is the identity returned by Google sign-in.
type GoogleProfile struct {
	ID    string
	Email string
	Name  string
}

// UserService owns accounts: signup, two-factor login, Google sign-in,
// profile maintenance and API tokens.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	totp                         *auth.TOTP
	validate                     *validation.Validator
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		totp:                         auth.NewTOTP(cfg.MFAIssuer),
		validate:                     validation.New(),
		log:                          log,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newBackupCodes returns plaintext codes and their hashes.
func newBackupCodes() ([]string, []string, error) {
	codes := make([]string, 0, backupCodeCount)
	hashes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		c, err := common.MakeBackupCode()
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, c)
		hashes = append(hashes, cryptox.HashBackupCode(c))
	}
	return codes, hashes, nil
}

// createWithMFA stores u with a fresh TOTP secret and backup codes, returning
// the plaintext codes for one-time display.
func (s *UserService) createWithMFA(ctx context.Context, u *models.User) (*models.User, []string, error) {
	secret, err := s.totp.NewSecret(u.Email)
	if err != nil {
		return nil, nil, err
	}
	u.MFAEnabled = true
	u.MFASecret = secret

	codes, hashes, err := newBackupCodes()
	if err != nil {
		return nil, nil, err
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Users(tx).Create(ctx, u)
		if err != nil {
			return err
		}
		return s.repomanager.BackupCodes(tx).Replace(ctx, created.ID, hashes)
	})
	if err != nil {
		return nil, nil, err
	}
	return created, codes, nil
}

// Signup validates the form and creates a password account with two-factor
// authentication enabled.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, []string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validate.Struct(in); err != nil {
		return nil, nil, err
	}

	u, codes, err := s.createWithMFA(ctx, &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: cryptox.HashPassword(in.Password),
		Phone:        in.Phone,
		Location:     in.Location,
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user signed up", "user_id", u.ID)
	return u, codes, nil
}

// MFASetup returns the enrolment QR code and URL for the user's secret.
func (s *UserService) MFASetup(ctx context.Context, userID string) (*auth.Provisioning, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.totp.Provision(u.Email, u.MFASecret)
}

// VerifyNewUserMFA confirms the first authenticator code after signup.
func (s *UserService) VerifyNewUserMFA(ctx context.Context, userID, code string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.totp.Validate(code, u.MFASecret) {
		return nil, common.ErrInvalidMFACode
	}
	if err := repo.UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password. The returned user still has to pass VerifyMFA.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.HasPassword() {
		return nil, common.ErrInvalidCredentials
	}

	ok, err := cryptox.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		s.log.Error(ctx, "stored password hash is malformed", "user_id", u.ID, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	return u, nil
}

// VerifyMFA completes a login with either an authenticator code or an
// unused backup code. A backup code is consumed together with the
// last-login update.
func (s *UserService) VerifyMFA(ctx context.Context, userID, code, backupCode string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.totp.Validate(code, u.MFASecret) {
		if err := s.repomanager.Users(s.db).UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
			return nil, err
		}
		return u, nil
	}

	backupCode = cryptox.NormalizeBackupCode(backupCode)
	if backupCode == "" {
		return nil, common.ErrInvalidMFACode
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		codes := s.repomanager.BackupCodes(tx)
		bc, err := codes.FindUnused(ctx, u.ID, cryptox.HashBackupCode(backupCode))
		if err != nil {
			return err
		}
		if err := codes.MarkUsed(ctx, bc.ID, s.now()); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdateLastLogin(ctx, u.ID, s.now())
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidMFACode
		}
		return nil, err
	}

	s.log.Info(ctx, "backup code used", "user_id", u.ID)
	return u, nil
}

// GoogleLogin finds or creates the account for a Google identity. Existing
// accounts matched by email are linked. New accounts get MFA credentials,
// returned as plaintext backup codes; codes is nil for existing accounts.
func (s *UserService) GoogleLogin(ctx context.Context, p GoogleProfile) (u *models.User, codes []string, err error) {
	p.Email = normalizeEmail(p.Email)
	if p.ID == "" || p.Email == "" {
		return nil, nil, fmt.Errorf("%w: incomplete google profile", common.ErrValidation)
	}
	if p.Name == "" {
		p.Name, _, _ = strings.Cut(p.Email, "@")
	}

	repo := s.repomanager.Users(s.db)

	u, err = repo.GetByGoogleID(ctx, p.ID)
	if err == nil {
		return u, nil, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, nil, err
	}

	u, err = repo.GetByEmail(ctx, p.Email)
	if err == nil {
		if err := repo.LinkGoogle(ctx, u.ID, p.ID); err != nil {
			return nil, nil, err
		}
		u.GoogleID = p.ID
		u.IsGoogleUser = true
		s.log.Info(ctx, "google account linked", "user_id", u.ID)
		return u, nil, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, nil, err
	}

	u, codes, err = s.createWithMFA(ctx, &models.User{
		Name:         p.Name,
		Email:        p.Email,
		GoogleID:     p.ID,
		IsGoogleUser: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating google user: %w", err)
	}
	s.log.Info(ctx, "google user created", "user_id", u.ID)
	return u, codes, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// RegenerateBackupCodes invalidates all codes and issues a new set.
func (s *UserService) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes, hashes, err := newBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.BackupCodes(s.db).Replace(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *UserService) BackupCodesRemaining(ctx context.Context, userID string) (int, error) {
	return s.repomanager.BackupCodes(s.db).CountUnused(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Location = strings.TrimSpace(in.Location)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Bio = strings.TrimSpace(in.Bio)

	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name, u.Email, u.Location, u.Phone, u.Bio = in.Name, in.Email, in.Location, in.Phone, in.Bio

	if err := repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
// Accounts without a password get common.ErrPasswordNotSet.
func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	if in.New != in.Confirm {
		return validation.Errors{"New passwords do not match."}
	}
	if len([]rune(in.New)) < 6 {
		return validation.Errors{"New password must be at least 6 characters long."}
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		return common.ErrPasswordNotSet
	}
	ok, err := cryptox.VerifyPassword(u.PasswordHash, in.Current)
	if err != nil || !ok {
		return common.ErrInvalidCredentials
	}
	return repo.UpdatePassword(ctx, u.ID, cryptox.HashPassword(in.New))
}

// ResetPassword sets a new password without the current one. Admin use only.
func (s *UserService) ResetPassword(ctx context.Context, email, password string) error {
	if len([]rune(password)) < 6 {
		return validation.Errors{"Password must be at least 6 characters long."}
	}
	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	return repo.UpdatePassword(ctx, u.ID, cryptox.HashPassword(password))
}

// DeleteAccount removes the user; owned rows go with it.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "account deleted", "user_id", userID)
	return nil
}
