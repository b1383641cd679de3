package server

import (
	"net/http"

	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"

	"github.com/gorilla/csrf"
)

func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	sess := session.FromContext(r.Context())
	access := accessFromContext(r.Context())

	if setter, ok := data.(types.NavbarDataSetter); ok {
		nav := types.NavbarData{
			IsAuthenticated: sess.Authenticated(),
			IsApproved:      access.Approved(),
			IsAdmin:         access.Approved() && access.IsAdmin(),
			UserID:          sess.UserID(),
		}
		if sess.Authenticated() {
			nav.UserEmail = sess.Identity.Email
		}
		setter.SetNavbarData(nav)
		setter.SetCSRFField(csrf.TemplateField(r))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return s.templates.ExecuteTemplate(w, templateName, data)
}

// basePage fills the notice and error flashes carried in the query string.
func basePage(r *http.Request, title string) types.BasePageData {
	return types.BasePageData{
		Title:  title,
		Notice: r.URL.Query().Get("notice"),
		Error:  r.URL.Query().Get("error"),
	}
}

// renderStatus renders templateName with a non 200 status, used to redisplay forms with errors.
func (s *Service) renderStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderTemplate(w, r, templateName, data); err != nil {
		s.logger.WithError(err).WithField("template", templateName).Error("failed to render page with errors")
	}
}
