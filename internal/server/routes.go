package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, tracked(h))
	}

	// Health, metrics and stored media.
	handle("GET /health", s.handleHealth)
	if s.metrics != nil {
		handle("GET /metrics", s.metrics.Handler().ServeHTTP)
	}
	if s.media != nil {
		handle("GET /static/", http.StripPrefix("/static/", staticFileServer(s.media.Root())).ServeHTTP)
	}

	// Labs.
	handle("GET /v1/labs", s.handleListLabs)
	handle("POST /v1/labs", s.adminOnly(s.handleCreateLab))
	handle("GET /v1/labs/{id}", s.handleGetLab)
	handle("PUT /v1/labs/{id}", s.adminOnly(s.handleUpdateLab))
	handle("DELETE /v1/labs/{id}", s.adminOnly(s.handleDeleteLab))
	handle("GET /v1/labs/{id}/qr", s.handleGetLabQR)

	// Single media removal.
	handle("DELETE /v1/labs/{id}/images", s.adminOnly(s.handleDeleteLabImage))
	handle("DELETE /v1/labs/{id}/media", s.adminOnly(s.handleDeleteLabMedia))

	// Followers and attendance.
	handle("POST /v1/labs/{id}/followers", s.studentOnly(s.handleFollowLab))
	handle("DELETE /v1/labs/{id}/followers", s.studentOnly(s.handleUnfollowLab))
	handle("GET /v1/labs/{id}/followers/count", s.handleCountFollowers)
	handle("GET /v1/labs/{id}/followers/{userId}", s.handleIsFollowing)
	handle("POST /v1/labs/{id}/attendance", s.studentOnly(s.handleRecordAttendance))
	handle("GET /v1/labs/{id}/attendance/count", s.adminOnly(s.handleCountAttendance))

	// Student accounts.
	handle("POST /v1/users/register", s.handleRegisterUser)
	handle("POST /v1/users/login", s.handleLoginUser)
	handle("GET /v1/users/profile", s.studentOnly(s.handleGetProfile))
	handle("PUT /v1/users/profile", s.studentOnly(s.handleUpdateProfile))

	// Sessions.
	handle("POST /v1/auth/logout", s.requireRole(s.handleLogout))

	// Admin accounts.
	handle("POST /v1/admin/login", s.handleLoginAdmin)
	handle("POST /v1/admin/register", s.adminOnly(s.handleRegisterAdmin))
	handle("GET /v1/admin/admins", s.adminOnly(s.handleListAdmins))
	handle("PUT /v1/admin/admins/{id}", s.adminOnly(s.handleUpdateAdmin))

	return mux
}
