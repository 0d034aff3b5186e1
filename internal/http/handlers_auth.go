package http

import (
	"errors"
	"net/http"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.Get(r); ok && sess.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", "Welcome", nil)
}

// handleLogin signs in or registers with email and password. The browser
// script posts JSON and follows the returned redirect.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(msgMissingAuthData).Write(w)
		return
	}
	creds := credentials{
		Email:          p.Get("email"),
		Password:       p.GetRaw("password"),
		IsRegistration: p.GetBool("isRegistration"),
	}
	if msg := creds.Problem(); msg != "" {
		BadRequestError(msg).Write(w)
		return
	}

	var (
		u   core.User
		err error
	)
	if creds.IsRegistration {
		u, err = s.auth.Register(ctx, creds.Email, creds.Password)
	} else {
		u, err = s.auth.Login(ctx, creds.Email, creds.Password)
	}
	switch {
	case errors.Is(err, storage.ErrUserExists):
		BadRequestError("User already exists").Write(w)
		return
	case errors.Is(err, auth.ErrMissingCredentials):
		BadRequestError(msgMissingAuthData).Write(w)
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		BadRequestError(msgLongPassword).Write(w)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		UnauthorizedError("Invalid email or password").Write(w)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Login failed", log.FieldError, err.Error(), log.FieldOperation, log.OpLogin)
		InternalServerError("Login failed. Please try again.").Write(w)
		return
	}

	s.sessions.Login(w, r, u)
	op := log.OpLogin
	if creds.IsRegistration {
		op = log.OpRegister
	}
	logger.InfoContext(ctx, "User signed in", log.FieldUserID, u.ID, log.FieldOperation, op)
	NewJSONResponse().Redirect("/dashboard").Write(w)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Email is required").Write(w)
		return
	}
	err := s.auth.ResetPassword(r.Context(), p.Get("email"))
	if errors.Is(err, auth.ErrMissingCredentials) {
		BadRequestError("Email is required").Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Password reset failed", log.FieldError, err.Error())
		InternalServerError("Password reset failed").Write(w)
		return
	}
	NewJSONResponse().Write(w)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, s.google.AuthURL(s.sessions.NewState()), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)
	q := r.URL.Query()

	fail := func(msg string) {
		s.sessions.AddFlash(w, r, auth.FlashDanger, msg)
		http.Redirect(w, r, "/", http.StatusFound)
	}

	if !s.sessions.ConsumeState(q.Get("state")) {
		logger.WarnContext(ctx, "OAuth callback with unknown state", log.FieldProvider, core.ProviderGoogle)
		fail("Google sign-in failed. Please try again.")
		return
	}
	if e := q.Get("error"); e != "" {
		logger.InfoContext(ctx, "Google sign-in cancelled", log.FieldProvider, core.ProviderGoogle, log.FieldError, e)
		fail("Google sign-in was cancelled.")
		return
	}
	code := q.Get("code")
	if code == "" {
		fail("Google sign-in failed. Please try again.")
		return
	}

	gu, err := s.google.Exchange(ctx, code)
	if err != nil {
		logger.ErrorContext(ctx, "Google token exchange failed", log.FieldProvider, core.ProviderGoogle, log.FieldError, err.Error())
		fail("Google sign-in failed. Please try again.")
		return
	}
	u, err := s.auth.LoginGoogle(ctx, gu)
	if errors.Is(err, auth.ErrEmailNotVerified) {
		fail("User email not available or not verified by Google.")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Google sign-in failed", log.FieldProvider, core.ProviderGoogle, log.FieldError, err.Error())
		fail("Google sign-in failed. Please try again.")
		return
	}

	s.sessions.Login(w, r, u)
	logger.InfoContext(ctx, "User signed in", log.FieldUserID, u.ID, log.FieldProvider, core.ProviderGoogle)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleDemoLogin(w http.ResponseWriter, r *http.Request) {
	if !s.demoMode {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	u, err := s.auth.DemoLogin(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Demo login failed", log.FieldError, err.Error())
		s.sessions.AddFlash(w, r, auth.FlashDanger, "Demo login failed. Please try again.")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.sessions.Login(w, r, u, auth.Flash{Kind: auth.FlashInfo, Message: "Logged in as demo user for development purposes."})
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	s.sessions.Logout(w, r)
	s.sessions.AddFlash(w, r, auth.FlashInfo, "You have been logged out. Please sign in again.")
	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged out", "demo", sess.Demo)
	http.Redirect(w, r, "/", http.StatusFound)
}
