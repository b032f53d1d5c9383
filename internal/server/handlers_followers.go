package server

import (
	"fmt"
	"net/http"

	"labhub/internal/api"
)

func (s *Server) handleFollowLab(w http.ResponseWriter, r *http.Request) {
	code, principal, ok := s.labAndCaller(w, r)
	if !ok {
		return
	}
	if err := s.followerService.Follow(r.Context(), code, principal.Code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnfollowLab(w http.ResponseWriter, r *http.Request) {
	code, principal, ok := s.labAndCaller(w, r)
	if !ok {
		return
	}
	if err := s.followerService.Unfollow(r.Context(), code, principal.Code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCountFollowers(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	count, err := s.followerService.Count(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CountResponse{Count: count})
}

func (s *Server) handleIsFollowing(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	userCode, ok := s.pathCodeOrBadRequest(w, r, "userId")
	if !ok {
		return
	}
	following, err := s.followerService.IsFollowing(r.Context(), code, userCode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FollowingResponse{IsFollowing: following})
}

func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	code, principal, ok := s.labAndCaller(w, r)
	if !ok {
		return
	}
	if err := s.followerService.RecordAttendance(r.Context(), code, principal.Code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCountAttendance(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	count, err := s.followerService.AttendanceCount(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CountResponse{Count: count})
}

func (s *Server) labAndCaller(w http.ResponseWriter, r *http.Request) (int64, Principal, bool) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return 0, Principal{}, false
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return 0, Principal{}, false
	}
	return code, principal, true
}
