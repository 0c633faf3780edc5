package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/cryptox"
	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/auth"
)

// APILogin authenticates with password plus an authenticator or backup
// code and issues a token pair.
func (s *UserService) APILogin(ctx context.Context, email, password, code string) (*TokenPair, error) {
	u, err := s.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if _, err := s.VerifyMFA(ctx, u.ID, code, code); err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, s.db, u.ID)
}

// RefreshToken rotates a refresh token: the old one is deleted and a new
// pair is issued in the same transaction. A token that was already rotated
// by a concurrent call is rejected.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := cryptox.HashToken(refreshToken)
	token, err := s.repomanager.RefreshTokens(s.db).FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expired(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)
		deleted, err := repo.DeleteByHash(ctx, hash)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			return common.ErrInvalidToken
		}
		if _, err := repo.DeleteExpired(ctx, token.UserID, s.now()); err != nil {
			return fmt.Errorf("error purging refresh tokens: %w", err)
		}

		pair, err = s.generateTokenPair(ctx, tx, token.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// UserIDFromAccessToken validates an access token.
func (s *UserService) UserIDFromAccessToken(token string) (string, error) {
	return auth.ParseAccessToken(token, s.jwtSecret)
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	accessToken, err := auth.IssueAccessToken(userID, s.jwtSecret, s.accessTokenValidityDuration, s.now())
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	expires := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(db).Create(ctx, userID, cryptox.HashToken(refreshToken), expires); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
