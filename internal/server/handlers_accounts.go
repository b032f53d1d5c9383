package server

import (
	"net/http"

	"labhub/internal/api"
)

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req api.UserRegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	user, err := s.accountService.RegisterUser(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLoginUser(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	result, err := s.accountService.LoginUser(r.Context(), req, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse(result))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	user, err := s.accountService.GetUserProfile(r.Context(), principal.Code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req api.UserUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	user, err := s.accountService.UpdateUserProfile(r.Context(), principal.Code, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.accountService.RevokeToken(r.Context(), bearerToken(r), s.now()); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	result, err := s.accountService.LoginAdmin(r.Context(), req, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loginResponse(result))
}

func (s *Server) handleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req api.AdminRegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	admin, err := s.accountService.RegisterAdmin(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, admin)
}

func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.accountService.ListAdmins(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, admins)
}

func (s *Server) handleUpdateAdmin(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.AdminUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	admin, err := s.accountService.UpdateAdmin(r.Context(), code, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, admin)
}

func loginResponse(result *loginResult) api.LoginResponse {
	return api.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Role:      string(result.Principal.Role),
		Code:      result.Principal.Code,
		Email:     result.Principal.Email,
	}
}
