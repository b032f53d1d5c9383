package store

import (
	"context"
	"fmt"
	"time"
)

// AddFollower records that a user follows a lab. Repeated calls are no-ops.
func (s *Store) AddFollower(ctx context.Context, labCode, userCode int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO lab_followers (lab_code, user_code, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (lab_code, user_code) DO NOTHING
	`), labCode, userCode, dbFormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("add follower: %w", err)
	}
	return nil
}

// RemoveFollower deletes the follow relation if present.
func (s *Store) RemoveFollower(ctx context.Context, labCode, userCode int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM lab_followers WHERE lab_code = ? AND user_code = ?
	`), labCode, userCode)
	if err != nil {
		return fmt.Errorf("remove follower: %w", err)
	}
	return nil
}

// CountFollowers returns how many users follow a lab.
func (s *Store) CountFollowers(ctx context.Context, labCode int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM lab_followers WHERE lab_code = ?`), labCode).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IsFollowing reports whether the user follows the lab.
func (s *Store) IsFollowing(ctx context.Context, labCode, userCode int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM lab_followers WHERE lab_code = ? AND user_code = ?
	`), labCode, userCode).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteFollowersForLab drops every follow relation of a lab.
func (s *Store) DeleteFollowersForLab(ctx context.Context, labCode int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM lab_followers WHERE lab_code = ?`), labCode)
	if err != nil {
		return fmt.Errorf("delete followers for lab %d: %w", labCode, err)
	}
	return nil
}
