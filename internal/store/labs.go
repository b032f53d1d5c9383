package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"labhub/internal/attachset"
	"labhub/internal/models"
)

const labColumns = `lab_code, lab_name, lab_description, lab_objectives, lab_proyects, lab_images, lab_video, lab_podcast`

// InsertLab stores a new lab and returns its generated code and name.
func (s *Store) InsertLab(ctx context.Context, lab *models.Lab) (int64, string, error) {
	if lab == nil {
		return 0, "", fmt.Errorf("lab is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	var code int64
	var name string
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO lab (lab_name, lab_description, lab_objectives, lab_proyects, lab_images, lab_video, lab_podcast)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING lab_code, lab_name
	`), labArgs(lab)...).Scan(&code, &name)
	if err != nil {
		return 0, "", fmt.Errorf("insert lab: %w", err)
	}
	return code, name, nil
}

// GetLab returns a lab by code, or nil when it does not exist.
func (s *Store) GetLab(ctx context.Context, code int64) (*models.Lab, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+labColumns+` FROM lab WHERE lab_code = ?`), code)
	return scanLab(row)
}

// ListLabs returns all labs ordered by code.
func (s *Store) ListLabs(ctx context.Context) ([]models.Lab, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+labColumns+` FROM lab ORDER BY lab_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labs := make([]models.Lab, 0)
	for rows.Next() {
		lab, err := scanLab(rows)
		if err != nil {
			return nil, err
		}
		if lab != nil {
			labs = append(labs, *lab)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labs, nil
}

// ReplaceLab overwrites every column of an existing lab. It returns nil when
// no row matched.
func (s *Store) ReplaceLab(ctx context.Context, code int64, lab *models.Lab) (*models.Lab, error) {
	if lab == nil {
		return nil, fmt.Errorf("lab is required")
	}
	args := append(labArgs(lab), code)
	row := s.db.QueryRowContext(ctx, s.q(`
		UPDATE lab
		SET lab_name = ?, lab_description = ?, lab_objectives = ?, lab_proyects = ?,
		    lab_images = ?, lab_video = ?, lab_podcast = ?
		WHERE lab_code = ?
		RETURNING `+labColumns), args...)
	updated, err := scanLab(row)
	if err != nil {
		return nil, fmt.Errorf("update lab %d: %w", code, err)
	}
	return updated, nil
}

// DeleteLab removes a lab row. It reports false when nothing was deleted.
func (s *Store) DeleteLab(ctx context.Context, code int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM lab WHERE lab_code = ?`), code)
	if err != nil {
		return false, fmt.Errorf("delete lab %d: %w", code, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func labArgs(lab *models.Lab) []any {
	return []any{
		strings.TrimSpace(lab.Name),
		lab.Description,
		attachset.Encode(lab.Objectives),
		attachset.Encode(lab.Projects),
		attachset.Encode(lab.Images),
		lab.Video,
		lab.Podcast,
	}
}

func scanLab(scanner interface {
	Scan(dest ...any) error
}) (*models.Lab, error) {
	var lab models.Lab
	var objectives, projects, images string
	err := scanner.Scan(&lab.Code, &lab.Name, &lab.Description, &objectives, &projects, &images, &lab.Video, &lab.Podcast)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lab.Objectives = attachset.Decode(objectives)
	lab.Projects = attachset.Decode(projects)
	lab.Images = attachset.Decode(images)
	return &lab, nil
}
