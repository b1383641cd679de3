package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/gate"
	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"
)

func (s *Service) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, gate.PathDashboard, http.StatusSeeOther)
		return
	}

	data := &types.LoginPageData{
		BasePageData: basePage(r, "Log in"),
		Email:        r.URL.Query().Get("email"),
	}
	if r.URL.Query().Get("confirmed") == "true" {
		data.Notice = "Your account is confirmed. You can log in now."
	}

	if err := s.renderTemplate(w, r, "page.login", data); err != nil {
		s.logger.WithError(err).Error("failed to render login page")
		s.internalServerError(w)
	}
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := &types.LoginPageData{
		BasePageData: basePage(r, "Log in"),
		Email:        email,
	}

	if email == "" || password == "" {
		data.Error = "Email and password are required."
		s.renderLoginError(w, r, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tokens, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			data.Error = "Invalid email or password."
		case errors.Is(err, auth.ErrNotConfirmed):
			v := url.Values{}
			v.Set("email", email)
			http.Redirect(w, r, "/signup/confirm?"+v.Encode(), http.StatusSeeOther)
			return
		default:
			s.logger.WithError(err).Error("failed to sign in user")
			data.Error = "Unable to log in right now. Please try again."
		}
		s.renderLoginError(w, r, data)
		return
	}

	if err := s.sessions.Start(w, tokens.AccessToken); err != nil {
		s.logger.WithError(err).Error("failed to start session")
		s.internalServerError(w)
		return
	}

	http.Redirect(w, r, s.sessions.PopRedirect(w, r, gate.PathDashboard), http.StatusSeeOther)
}

func (s *Service) renderLoginError(w http.ResponseWriter, r *http.Request, data *types.LoginPageData) {
	s.renderStatus(w, r, http.StatusUnauthorized, "page.login", data)
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if sess.Token != "" {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		if err := s.auth.SignOut(ctx, sess.Token); err != nil {
			s.logger.WithError(err).WithField("user_id", sess.UserID()).Warn("provider sign out failed")
		}
	}

	s.sessions.End(w)
	http.Redirect(w, r, gate.PathHome, http.StatusSeeOther)
}
