package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/gate"
	"volunteerhub/internal/session"
	"volunteerhub/pkg/types"

	"github.com/go-playground/validator/v10"
)

var selfSelectableRoles = []types.Role{types.RoleStudent, types.RoleParent}

func (s *Service) handleGetSignup(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, gate.PathDashboard, http.StatusSeeOther)
		return
	}

	data := &types.SignupPageData{
		BasePageData: basePage(r, "Volunteer signup"),
		Form:         types.SignupForm{Role: types.RoleStudent},
		Roles:        selfSelectableRoles,
	}

	if err := s.renderTemplate(w, r, "page.signup", data); err != nil {
		s.logger.WithError(err).Error("failed to render signup page")
		s.internalServerError(w)
	}
}

func (s *Service) handlePostSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/signup", "invalid form payload")
		return
	}

	var form types.SignupForm
	if err := decoder.Decode(&form, r.PostForm); err != nil {
		s.logger.WithError(err).Warn("failed to decode signup form")
		s.redirectWithError(w, r, "/signup", "invalid form payload")
		return
	}

	data := &types.SignupPageData{
		BasePageData: basePage(r, "Volunteer signup"),
		Form:         form,
		Roles:        selfSelectableRoles,
	}
	data.Form.Password = ""
	data.Form.ConfirmPassword = ""

	data.FieldErrors = validateSignupInput(&form)
	if len(data.FieldErrors) > 0 {
		s.logger.WithField("field_errors", data.FieldErrors).Info("validation errors during signup")

		data.Error = "Please fix the highlighted fields."
		s.renderSignupError(w, r, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	email := strings.TrimSpace(form.Email)
	sub, err := s.auth.SignUp(ctx, email, form.Password, strings.TrimSpace(form.FullName))
	if err != nil {
		data.Error, data.FieldErrors = s.mapSignUpError(err)
		s.renderSignupError(w, r, data)
		return
	}

	if err := s.users.Create(ctx, form.NewUser(sub)); err != nil {
		s.logger.WithError(err).WithField("user_id", sub).Error("failed to create user record after signup")
		data.Error = "Your account was created but your profile could not be saved. Please contact us."
		s.renderSignupError(w, r, data)
		return
	}

	v := url.Values{}
	v.Set("email", email)
	http.Redirect(w, r, "/signup/confirm?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) renderSignupError(w http.ResponseWriter, r *http.Request, data *types.SignupPageData) {
	s.renderStatus(w, r, http.StatusUnprocessableEntity, "page.signup", data)
}

func (s *Service) handleGetSignupConfirm(w http.ResponseWriter, r *http.Request) {
	data := &types.ConfirmSignupPageData{
		BasePageData: basePage(r, "Confirm your account"),
		Email:        strings.TrimSpace(r.URL.Query().Get("email")),
	}

	if err := s.renderTemplate(w, r, "page.signup.confirm", data); err != nil {
		s.logger.WithError(err).Error("failed to render signup confirm page")
		s.internalServerError(w)
	}
}

func (s *Service) handlePostSignupConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	data := &types.ConfirmSignupPageData{
		BasePageData: basePage(r, "Confirm your account"),
		Email:        email,
	}

	if email == "" || code == "" {
		data.Error = "Email and confirmation code are required."
		s.renderConfirmError(w, r, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.auth.ConfirmSignUp(ctx, email, code); err != nil {
		switch {
		case errors.Is(err, auth.ErrCodeMismatch):
			data.Error = "Invalid confirmation code. Please check the code and try again."
		case errors.Is(err, auth.ErrCodeExpired):
			data.Error = "That confirmation code has expired. Please request a new one."
		default:
			s.logger.WithError(err).Error("failed to confirm user signup")
			data.Error = "Unable to confirm account. Please try again."
		}
		s.renderConfirmError(w, r, data)
		return
	}

	v := url.Values{}
	v.Set("confirmed", "true")
	v.Set("email", email)
	http.Redirect(w, r, "/login?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) renderConfirmError(w http.ResponseWriter, r *http.Request, data *types.ConfirmSignupPageData) {
	s.renderStatus(w, r, http.StatusUnprocessableEntity, "page.signup.confirm", data)
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
)

var signupFieldMessages = map[string]string{
	"FullName":      "Full name is required.",
	"Email":         "Enter a valid email address.",
	"Phone":         "Phone number is too long.",
	"Role":          "Choose student or parent.",
	"ParentName":    "Parent name is too long.",
	"ParentEmail":   "Enter a valid parent email address.",
	"ParentPhone":   "Parent phone is too long.",
	"StudentName":   "Student name is too long.",
	"StudentSchool": "School name is too long.",
}

func validateSignupInput(form *types.SignupForm) map[string]string {
	errs := map[string]string{}

	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)

	var verrs validator.ValidationErrors
	if err := validate.Struct(form); errors.As(err, &verrs) {
		for _, fe := range verrs {
			msg, ok := signupFieldMessages[fe.Field()]
			if !ok {
				msg = "This field is invalid."
			}
			errs[fieldKey(fe.Field())] = msg
		}
	}

	if form.Role == types.RoleStudent && strings.TrimSpace(form.ParentEmail) == "" {
		errs["parent_email"] = "A parent or guardian email is required for students."
	}
	if form.Role == types.RoleParent && strings.TrimSpace(form.StudentName) == "" {
		errs["student_name"] = "The student's name is required for parents."
	}

	if form.Password != form.ConfirmPassword {
		errs["confirm_password"] = "Passwords do not match."
	}

	password := form.Password
	if len(password) < 12 || !hasUpperReg.MatchString(password) || !hasLowerReg.MatchString(password) ||
		!hasDigitReg.MatchString(password) || !hasSymbolReg.MatchString(password) {
		errs["password"] = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
	}

	return errs
}

// fieldKey converts a struct field name to its snake case form key.
func fieldKey(name string) string {
	var b strings.Builder
	for i, c := range name {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *Service) mapSignUpError(err error) (string, map[string]string) {
	fieldErrs := map[string]string{}

	switch {
	case errors.Is(err, auth.ErrInvalidPassword):
		fieldErrs["password"] = "Password must include uppercase, lowercase, number, and symbol (min 12)."
		return "Please fix the highlighted fields.", fieldErrs
	case errors.Is(err, auth.ErrUserExists):
		fieldErrs["email"] = "An account with this email already exists."
		return "Try logging in instead.", fieldErrs
	case errors.Is(err, auth.ErrInvalidParameter):
		return "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled signup error")

	return "Unable to create account right now. Please try again.", fieldErrs
}
