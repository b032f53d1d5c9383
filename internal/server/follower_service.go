package server

import (
	"context"
	"fmt"
	"time"

	"labhub/internal/store"
)

// FollowerService manages lab followers and attendance check-ins.
type FollowerService struct {
	store store.LabStore
	now   func() time.Time
}

// NewFollowerService constructs a FollowerService.
func NewFollowerService(labStore store.LabStore) *FollowerService {
	return &FollowerService{store: labStore, now: func() time.Time { return time.Now().UTC() }}
}

// Follow links user to lab. Following twice is a no-op.
func (s *FollowerService) Follow(ctx context.Context, labCode, userCode int64) error {
	if err := s.requireLab(ctx, labCode); err != nil {
		return err
	}
	if err := s.store.AddFollower(ctx, labCode, userCode); err != nil {
		return storeFailure(err)
	}
	return nil
}

// Unfollow removes the link if present.
func (s *FollowerService) Unfollow(ctx context.Context, labCode, userCode int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.RemoveFollower(ctx, labCode, userCode); err != nil {
		return storeFailure(err)
	}
	return nil
}

// Count returns the number of followers; a missing lab has none.
func (s *FollowerService) Count(ctx context.Context, labCode int64) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	count, err := s.store.CountFollowers(ctx, labCode)
	if err != nil {
		return 0, storeFailure(err)
	}
	return count, nil
}

func (s *FollowerService) IsFollowing(ctx context.Context, labCode, userCode int64) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	following, err := s.store.IsFollowing(ctx, labCode, userCode)
	if err != nil {
		return false, storeFailure(err)
	}
	return following, nil
}

// RecordAttendance stores one check-in for user at lab.
func (s *FollowerService) RecordAttendance(ctx context.Context, labCode, userCode int64) error {
	if err := s.requireLab(ctx, labCode); err != nil {
		return err
	}
	if err := s.store.RecordAttendance(ctx, labCode, userCode, s.now()); err != nil {
		return storeFailure(err)
	}
	return nil
}

// AttendanceCount returns the number of check-ins recorded for lab.
func (s *FollowerService) AttendanceCount(ctx context.Context, labCode int64) (int, error) {
	if err := s.requireLab(ctx, labCode); err != nil {
		return 0, err
	}
	count, err := s.store.CountAttendance(ctx, labCode)
	if err != nil {
		return 0, storeFailure(err)
	}
	return count, nil
}

func (s *FollowerService) requireLab(ctx context.Context, labCode int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	lab, err := s.store.GetLab(ctx, labCode)
	if err != nil {
		return storeFailure(err)
	}
	if lab == nil {
		return labNotFound()
	}
	return nil
}

func (s *FollowerService) ready() error {
	if s == nil || s.store == nil {
		return internalError(fmt.Errorf("follower service is not configured"))
	}
	return nil
}
