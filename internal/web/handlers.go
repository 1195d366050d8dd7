// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/observability"
	"github.com/holomush/userauth/pkg/errutil"
)

const (
	msgWelcome         = "Bienvenue"
	msgUserCreated     = "user created"
	msgEmailRegistered = "email already registered"
	msgLoggedIn        = "logged in"
	msgPasswordUpdated = "Password updated"
	msgUnauthorized    = "unauthorized"
	msgForbidden       = "forbidden"
	msgNotFound        = "not found"
	msgMethod          = "method not allowed"
	msgInternal        = "internal server error"
)

type messageReply struct {
	Message any `json:"message"`
}

type emailMessageReply struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type profileReply struct {
	Email string `json:"email"`
}

type resetTokenReply struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondMessage(w, http.StatusOK, msgWelcome)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form credentialsForm
	if err := decodeForm(r, &form, "email", "password"); err != nil {
		s.respondFormError(w, r, err)
		return
	}

	if _, err := s.authn.Register(r.Context(), form.Email, form.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrAlreadyExists):
			respondMessage(w, http.StatusBadRequest, msgEmailRegistered)
		case errors.Is(err, auth.ErrMissingField):
			respondMessage(w, http.StatusBadRequest, missingFieldMessage(err))
		default:
			s.respondInternal(w, r, "register failed", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, emailMessageReply{Email: form.Email, Message: msgUserCreated})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form credentialsForm
	if err := decodeForm(r, &form, "email", "password"); err != nil {
		s.metrics.RecordLogin(observability.LoginInvalid)
		s.respondFormError(w, r, err)
		return
	}

	ok, err := s.authn.VerifyLogin(r.Context(), form.Email, form.Password)
	if err != nil {
		s.respondInternal(w, r, "login verification failed", err)
		return
	}
	if !ok {
		s.metrics.RecordLogin(observability.LoginFailure)
		respondMessage(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	token, ok, err := s.authn.CreateSession(r.Context(), form.Email)
	if err != nil {
		s.respondInternal(w, r, "session creation failed", err)
		return
	}
	if !ok {
		// The account vanished between verification and session creation.
		s.metrics.RecordLogin(observability.LoginFailure)
		respondMessage(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	s.metrics.RecordLogin(observability.LoginSuccess)
	http.SetCookie(w, s.sessionCookie(token))
	respondJSON(w, http.StatusOK, emailMessageReply{Email: form.Email, Message: msgLoggedIn})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	if err := s.authn.DestroySession(r.Context(), user.ID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondMessage(w, http.StatusForbidden, msgForbidden)
			return
		}
		s.respondInternal(w, r, "logout failed", err)
		return
	}

	expired := s.sessionCookie("")
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, profileReply{Email: user.Email})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var form resetRequestForm
	if err := decodeForm(r, &form, "email"); err != nil {
		s.respondFormError(w, r, err)
		return
	}

	token, err := s.authn.RequestPasswordReset(r.Context(), form.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotFound):
			respondMessage(w, http.StatusForbidden, msgForbidden)
		case errors.Is(err, auth.ErrMissingField):
			respondMessage(w, http.StatusBadRequest, missingFieldMessage(err))
		default:
			s.respondInternal(w, r, "password reset request failed", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, resetTokenReply{Email: form.Email, ResetToken: token})
}

func (s *Server) handleResetConsume(w http.ResponseWriter, r *http.Request) {
	var form passwordUpdateForm
	if err := decodeForm(r, &form, "email", "reset_token", "new_password"); err != nil {
		s.respondFormError(w, r, err)
		return
	}

	if err := s.authn.ConsumePasswordReset(r.Context(), form.ResetToken, form.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			respondMessage(w, http.StatusForbidden, msgForbidden)
		case errors.Is(err, auth.ErrMissingField):
			respondMessage(w, http.StatusBadRequest, missingFieldMessage(err))
		default:
			s.respondInternal(w, r, "password update failed", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, emailMessageReply{Email: form.Email, Message: msgPasswordUpdated})
}

// currentUser resolves the session cookie. On failure it has already
// written the 403 or 500 response.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		respondMessage(w, http.StatusForbidden, msgForbidden)
		return auth.Identity{}, false
	}

	user, ok, err := s.authn.UserForSession(r.Context(), cookie.Value)
	if err != nil {
		s.respondInternal(w, r, "session lookup failed", err)
		return auth.Identity{}, false
	}
	if !ok {
		respondMessage(w, http.StatusForbidden, msgForbidden)
		return auth.Identity{}, false
	}
	return user, true
}

func (s *Server) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) respondFormError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *formError
	if errors.As(err, &fe) {
		respondMessage(w, http.StatusBadRequest, fe.Message)
		return
	}
	s.logger.WarnContext(r.Context(), "malformed form body", errutil.Attrs(err)...)
	respondMessage(w, http.StatusBadRequest, "malformed request body")
}

func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	errutil.LogErrorContext(r.Context(), s.logger, msg, err)
	respondMessage(w, http.StatusInternalServerError, msgInternal)
}

// missingFieldMessage renders the engine's missing-field error the way the
// form check does.
func missingFieldMessage(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if field, ok := oopsErr.Context()["field"]; ok {
			return fmt.Sprintf("%v missing", field)
		}
	}
	return "field missing"
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	respondMessage(w, http.StatusNotFound, msgNotFound)
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondMessage(w, http.StatusMethodNotAllowed, msgMethod)
}

func respondMessage(w http.ResponseWriter, code int, message any) {
	respondJSON(w, code, messageReply{Message: message})
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}
