package server

import (
	"net/http"
	"net/url"
)

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	redirectWithQuery(w, r, path, "notice", notice)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	redirectWithQuery(w, r, path, "error", msg)
}

func redirectWithQuery(w http.ResponseWriter, r *http.Request, path, key, value string) {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}

	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
