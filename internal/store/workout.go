package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/faddenpatrick/ironledger/internal/dbx"
	"github.com/faddenpatrick/ironledger/internal/models"
)

// Exercises

func (s *Store) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	return getDoc[models.Exercise](ctx, s.db, `SELECT doc FROM exercises WHERE id = ?`, id)
}

// ListExercises returns locally mirrored exercises matching the filter:
// free-text substring match on name, exact match on the categorical fields.
func (s *Store) ListExercises(ctx context.Context, filter models.ExerciseFilter) ([]models.Exercise, error) {
	query := `SELECT doc FROM exercises`
	var conds []string
	var args []any
	if filter.Search != "" {
		conds = append(conds, `instr(lower(name), lower(?)) > 0`)
		args = append(args, filter.Search)
	}
	if filter.MuscleGroup != "" {
		conds = append(conds, `muscle_group = ?`)
		args = append(args, filter.MuscleGroup)
	}
	if filter.Equipment != "" {
		conds = append(conds, `equipment = ?`)
		args = append(args, filter.Equipment)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY name`
	return listDocs[models.Exercise](ctx, s.db, query, args...)
}

func putExercise(ctx context.Context, db dbx.DBTX, e *models.Exercise) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return err
	}
	query := `INSERT INTO exercises (id, name, muscle_group, equipment, is_custom, user_id, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			muscle_group = excluded.muscle_group,
			equipment = excluded.equipment,
			is_custom = excluded.is_custom,
			user_id = excluded.user_id,
			doc = excluded.doc
	`
	_, err = db.ExecContext(ctx, query, e.ID, e.Name, e.MuscleGroup, e.Equipment, e.IsCustom, e.UserID, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert exercise: %w", err)
	}
	return nil
}

func (s *Store) PutExercise(ctx context.Context, e *models.Exercise) error {
	return putExercise(ctx, s.db, e)
}

// ReplaceExercise removes the record stored under oldID and inserts the
// server-confirmed version, atomically, so at most one live copy of the
// entity ever exists.
func (s *Store) ReplaceExercise(ctx context.Context, oldID string, e *models.Exercise) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete exercise %s: %w", oldID, err)
		}
		return putExercise(ctx, tx, e)
	})
}

// BulkPutExercises overwrites the mirrored exercises with the server's
// result set, all-or-nothing.
func (s *Store) BulkPutExercises(ctx context.Context, exercises []models.Exercise) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range exercises {
			if err := putExercise(ctx, tx, &exercises[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteExercise(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exercise: %w", err)
	}
	return nil
}

// Workout templates

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.WorkoutTemplate, error) {
	return getDoc[models.WorkoutTemplate](ctx, s.db, `SELECT doc FROM workout_templates WHERE id = ?`, id)
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	return listDocs[models.WorkoutTemplate](ctx, s.db, `SELECT doc FROM workout_templates ORDER BY created_at DESC`)
}

func putTemplate(ctx context.Context, db dbx.DBTX, t *models.WorkoutTemplate) error {
	doc, err := marshalDoc(t)
	if err != nil {
		return err
	}
	query := `INSERT INTO workout_templates (id, user_id, name, created_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			name = excluded.name,
			created_at = excluded.created_at,
			doc = excluded.doc
	`
	if _, err := db.ExecContext(ctx, query, t.ID, t.UserID, t.Name, t.CreatedAt, doc); err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

func (s *Store) PutTemplate(ctx context.Context, t *models.WorkoutTemplate) error {
	return putTemplate(ctx, s.db, t)
}

func (s *Store) ReplaceTemplate(ctx context.Context, oldID string, t *models.WorkoutTemplate) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workout_templates WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete template %s: %w", oldID, err)
		}
		return putTemplate(ctx, tx, t)
	})
}

func (s *Store) BulkPutTemplates(ctx context.Context, templates []models.WorkoutTemplate) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range templates {
			if err := putTemplate(ctx, tx, &templates[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workout_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Workouts

func (s *Store) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	w, err := getDoc[models.Workout](ctx, s.db, `SELECT doc FROM workouts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	sets, err := s.ListSetsByWorkout(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Sets = sets
	return w, nil
}

// ListWorkouts returns workouts in rng, newest first. Sets are not loaded.
func (s *Store) ListWorkouts(ctx context.Context, rng models.WorkoutRange) ([]models.Workout, error) {
	query := `SELECT doc FROM workouts`
	var conds []string
	var args []any
	if rng.StartDate != "" {
		conds = append(conds, `workout_date >= ?`)
		args = append(args, rng.StartDate)
	}
	if rng.EndDate != "" {
		conds = append(conds, `workout_date <= ?`)
		args = append(args, rng.EndDate)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY workout_date DESC, started_at DESC`
	return listDocs[models.Workout](ctx, s.db, query, args...)
}

func putWorkout(ctx context.Context, db dbx.DBTX, w *models.Workout) error {
	doc, err := marshalDoc(w)
	if err != nil {
		return err
	}
	query := `INSERT INTO workouts (id, user_id, template_id, workout_date, started_at, completed_at, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			template_id = excluded.template_id,
			workout_date = excluded.workout_date,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			doc = excluded.doc
	`
	_, err = db.ExecContext(ctx, query, w.ID, w.UserID, w.TemplateID, w.WorkoutDate, w.StartedAt, w.CompletedAt, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert workout: %w", err)
	}
	return nil
}

func (s *Store) PutWorkout(ctx context.Context, w *models.Workout) error {
	return putWorkout(ctx, s.db, w)
}

// ReplaceWorkout swaps the temp-id workout (and its sets) for the
// server-confirmed aggregate in one transaction.
func (s *Store) ReplaceWorkout(ctx context.Context, oldID string, w *models.Workout) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE workout_id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete sets of workout %s: %w", oldID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete workout %s: %w", oldID, err)
		}
		if err := putWorkout(ctx, tx, w); err != nil {
			return err
		}
		for i := range w.Sets {
			if err := putSet(ctx, tx, &w.Sets[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) BulkPutWorkouts(ctx context.Context, workouts []models.Workout) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range workouts {
			if err := putWorkout(ctx, tx, &workouts[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteWorkout(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE workout_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete sets: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete workout: %w", err)
		}
		return nil
	})
}

// Sets

func (s *Store) GetSet(ctx context.Context, id string) (*models.Set, error) {
	return getDoc[models.Set](ctx, s.db, `SELECT doc FROM sets WHERE id = ?`, id)
}

func (s *Store) ListSetsByWorkout(ctx context.Context, workoutID string) ([]models.Set, error) {
	return listDocs[models.Set](ctx, s.db,
		`SELECT doc FROM sets WHERE workout_id = ? ORDER BY set_number, created_at`, workoutID)
}

func putSet(ctx context.Context, db dbx.DBTX, set *models.Set) error {
	doc, err := marshalDoc(set)
	if err != nil {
		return err
	}
	query := `INSERT INTO sets (id, workout_id, exercise_id, set_number, created_at, doc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET workout_id = excluded.workout_id,
			exercise_id = excluded.exercise_id,
			set_number = excluded.set_number,
			created_at = excluded.created_at,
			doc = excluded.doc
	`
	_, err = db.ExecContext(ctx, query, set.ID, set.WorkoutID, set.ExerciseID, set.SetNumber, set.CreatedAt, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert set: %w", err)
	}
	return nil
}

func (s *Store) PutSet(ctx context.Context, set *models.Set) error {
	return putSet(ctx, s.db, set)
}

func (s *Store) ReplaceSet(ctx context.Context, oldID string, set *models.Set) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete set %s: %w", oldID, err)
		}
		return putSet(ctx, tx, set)
	})
}

func (s *Store) DeleteSet(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete set: %w", err)
	}
	return nil
}
