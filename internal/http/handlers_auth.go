package http

import (
	"errors"
	"net/http"

	"tally/internal/auth"
	"tally/internal/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// handleSignUp provisions an account and signs it in, returning a session
// token for the new user.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.gateway.CreateAccount(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Token issue failed",
			log.FieldOperation, log.OpSignUp,
			log.FieldUserID, user.ID,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	})
}

// handleSignIn verifies credentials and returns a session token.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.gateway.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Token issue failed",
			log.FieldOperation, log.OpSignIn,
			log.FieldUserID, user.ID,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
	})
}

// handleAccount supports DELETE for removing the authenticated user.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	uid := userID(r)
	if err := s.gateway.RemoveUser(r.Context(), uid); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	s.invalidateUser(uid)
	w.WriteHeader(http.StatusNoContent)
}

// writeAuthError maps the auth sentinels onto HTTP statuses.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, auth.ErrEmailInUse):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrWrongCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Account operation failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
