package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
	"github.com/dmitrijs2005/cottonadvisor/internal/validation"
	"github.com/dmitrijs2005/cottonadvisor/internal/weather"
)

type dashboardView struct {
	User       *models.User
	Stats      *services.Dashboard
	Quick      *models.Prediction
	QuickStats *services.QuickStats
	Regions    []weather.Region
}

func (s *Server) dashboardView(c echo.Context) (*dashboardView, error) {
	ctx := c.Request().Context()
	userID := s.currentUserID(c)

	u, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.advisor.Dashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dashboardView{User: u, Stats: stats, Regions: weather.Regions()}, nil
}

// sessionUserGone ends the session when its user no longer exists.
func (s *Server) sessionUserGone(c echo.Context, err error) (bool, error) {
	if errors.Is(err, common.ErrorNotFound) {
		s.clearSession(c)
		return true, s.redirectWith(c, "/login", FlashWarning, "Please log in to access this page.")
	}
	return false, err
}

func (s *Server) handleDashboard(c echo.Context) error {
	v, err := s.dashboardView(c)
	if err != nil {
		_, err = s.sessionUserGone(c, err)
		return err
	}
	return s.render(c, "dashboard", "Dashboard", v)
}

func (s *Server) handleQuickPredict(c echo.Context) error {
	f, err := parseFieldConditions(c)
	if err != nil {
		return s.redirectWith(c, "/dashboard", FlashError, "Please enter valid numbers for all fields.")
	}

	ctx := c.Request().Context()
	userID := s.currentUserID(c)
	p, err := s.advisor.Quick(ctx, userID, f)
	if err != nil {
		return err
	}
	s.flash(c, FlashSuccess, fmt.Sprintf("Prediction completed! Expected yield: %s%%", num(p.PredictedYield)))

	if isXHR(c) {
		return c.JSON(http.StatusOK, agronomy.HeuristicEstimate{YieldPercent: p.PredictedYield, EstimatedProduction: p.EstimatedProduction})
	}

	v, err := s.dashboardView(c)
	if err != nil {
		return err
	}
	v.Quick = p
	if v.QuickStats, err = s.advisor.QuickStats(ctx, userID); err != nil {
		return err
	}
	return s.render(c, "dashboard", "Dashboard", v)
}

func (s *Server) handleQuickHistory(c echo.Context) error {
	list, err := s.advisor.QuickHistory(c.Request().Context(), s.currentUserID(c))
	if err != nil {
		return err
	}
	return s.render(c, "prediction_history", "Prediction History", list)
}

type profileView struct {
	User                 *models.User
	Stats                *services.QuickStats
	BackupCodesRemaining int
	NewBackupCodes       []string
}

func (s *Server) renderProfile(c echo.Context, newCodes []string) error {
	ctx := c.Request().Context()
	userID := s.currentUserID(c)

	u, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		_, err = s.sessionUserGone(c, err)
		return err
	}
	stats, err := s.advisor.QuickStats(ctx, userID)
	if err != nil {
		return err
	}
	remaining, err := s.accounts.BackupCodesRemaining(ctx, userID)
	if err != nil {
		return err
	}
	return s.render(c, "profile", "Profile", profileView{
		User:                 u,
		Stats:                stats,
		BackupCodesRemaining: remaining,
		NewBackupCodes:       newCodes,
	})
}

func (s *Server) handleProfile(c echo.Context) error {
	return s.renderProfile(c, nil)
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	in := services.ProfileInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Phone:    c.FormValue("phone"),
		Location: c.FormValue("location"),
		Bio:      c.FormValue("bio"),
	}

	u, err := s.accounts.UpdateProfile(c.Request().Context(), s.currentUserID(c), in)
	switch {
	case err == nil:
		sess := s.session(c)
		sess.Values[keyUserName] = u.Name
		s.save(c, sess)
		s.flash(c, FlashSuccess, "Profile updated successfully!")
	case errors.Is(err, common.ErrValidation):
		for _, m := range validation.Messages(err) {
			s.flash(c, FlashError, m)
		}
	case errors.Is(err, common.ErrEmailExists):
		s.flash(c, FlashError, "Email already exists.")
	default:
		return err
	}
	return s.renderProfile(c, nil)
}

func (s *Server) handleChangePassword(c echo.Context) error {
	err := s.accounts.ChangePassword(c.Request().Context(), s.currentUserID(c), services.ChangePasswordInput{
		Current: c.FormValue("current_password"),
		New:     c.FormValue("new_password"),
		Confirm: c.FormValue("confirm_new_password"),
	})
	switch {
	case err == nil:
		s.flash(c, FlashSuccess, "Password updated successfully!")
	case errors.Is(err, common.ErrValidation):
		for _, m := range validation.Messages(err) {
			s.flash(c, FlashError, m)
		}
	case errors.Is(err, common.ErrInvalidCredentials):
		s.flash(c, FlashError, "Current password is incorrect.")
	case errors.Is(err, common.ErrPasswordNotSet):
		s.flash(c, FlashError, "Accounts created with Google sign-in do not have a password.")
	default:
		s.log.Error(c.Request().Context(), "password change failed", "error", err)
		s.flash(c, FlashError, "An error occurred. Please try again.")
	}
	return c.Redirect(http.StatusSeeOther, "/profile")
}

func (s *Server) handleRegenerateCodes(c echo.Context) error {
	codes, err := s.accounts.RegenerateBackupCodes(c.Request().Context(), s.currentUserID(c))
	if err != nil {
		return err
	}
	s.flash(c, FlashSuccess, "New backup codes generated. Store them somewhere safe; the old codes no longer work.")
	return s.renderProfile(c, codes)
}

func (s *Server) handleDeleteAccount(c echo.Context) error {
	if err := s.accounts.DeleteAccount(c.Request().Context(), s.currentUserID(c)); err != nil {
		s.log.Error(c.Request().Context(), "account deletion failed", "error", err)
		return s.redirectWith(c, "/profile", FlashError, "An error occurred while deleting your account.")
	}
	s.clearSession(c)
	return s.redirectWith(c, "/", FlashInfo, "Your account has been deleted successfully.")
}
