package store

import (
	"context"
	"fmt"
	"time"
)

// RecordAttendance appends one check-in of a user at a lab.
func (s *Store) RecordAttendance(ctx context.Context, labCode, userCode int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO attendance (lab_code, user_code, attended_at) VALUES (?, ?, ?)
	`), labCode, userCode, dbFormatTime(at))
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

// CountAttendance returns the number of check-ins recorded for a lab.
func (s *Store) CountAttendance(ctx context.Context, labCode int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM attendance WHERE lab_code = ?`), labCode).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAttendanceForLab drops every attendance row of a lab.
func (s *Store) DeleteAttendanceForLab(ctx context.Context, labCode int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM attendance WHERE lab_code = ?`), labCode)
	if err != nil {
		return fmt.Errorf("delete attendance for lab %d: %w", labCode, err)
	}
	return nil
}
