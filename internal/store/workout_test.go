package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faddenpatrick/ironledger/internal/common"
	"github.com/faddenpatrick/ironledger/internal/models"
)

func TestExercises_RoundTripAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seed := []models.Exercise{
		{ID: "e1", Name: "Barbell Squat", MuscleGroup: strPtr("legs"), Equipment: strPtr("barbell")},
		{ID: "e2", Name: "Bench Press", MuscleGroup: strPtr("chest"), Equipment: strPtr("barbell")},
		{ID: "e3", Name: "Dumbbell Curl", MuscleGroup: strPtr("arms"), Equipment: strPtr("dumbbell"), IsCustom: true},
	}
	require.NoError(t, s.BulkPutExercises(ctx, seed))

	got, err := s.GetExercise(ctx, "e2")
	require.NoError(t, err)
	assert.Equal(t, "Bench Press", got.Name)
	assert.Equal(t, "chest", *got.MuscleGroup)

	all, err := s.ListExercises(ctx, models.ExerciseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bySearch, err := s.ListExercises(ctx, models.ExerciseFilter{Search: "bell"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 2, "substring match is case-insensitive and anywhere in the name")

	byGroup, err := s.ListExercises(ctx, models.ExerciseFilter{MuscleGroup: "legs"})
	require.NoError(t, err)
	require.Len(t, byGroup, 1)
	assert.Equal(t, "e1", byGroup[0].ID)

	byBoth, err := s.ListExercises(ctx, models.ExerciseFilter{Search: "curl", Equipment: "dumbbell"})
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	assert.Equal(t, "e3", byBoth[0].ID)
}

func TestGetExercise_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetExercise(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestPutExercise_UpsertsOnConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutExercise(ctx, &models.Exercise{ID: "e1", Name: "Squat"}))
	require.NoError(t, s.PutExercise(ctx, &models.Exercise{ID: "e1", Name: "Back Squat"}))

	got, err := s.GetExercise(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Back Squat", got.Name)

	all, err := s.ListExercises(ctx, models.ExerciseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReplaceExercise_SwapsTempForConfirmed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutExercise(ctx, &models.Exercise{ID: "temp-1", Name: "Squat"}))
	require.NoError(t, s.ReplaceExercise(ctx, "temp-1", &models.Exercise{ID: "srv-1", Name: "Squat"}))

	_, err := s.GetExercise(ctx, "temp-1")
	assert.True(t, errors.Is(err, common.ErrNotFound), "temp record must be gone")

	got, err := s.GetExercise(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "Squat", got.Name)

	all, err := s.ListExercises(ctx, models.ExerciseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "exactly one live copy after the swap")
}

func TestWorkouts_DateRangeAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.BulkPutWorkouts(ctx, []models.Workout{
		{ID: "w1", WorkoutDate: "2026-08-01", StartedAt: "2026-08-01T10:00:00Z"},
		{ID: "w2", WorkoutDate: "2026-08-15", StartedAt: "2026-08-15T10:00:00Z"},
		{ID: "w3", WorkoutDate: "2026-08-28", StartedAt: "2026-08-28T10:00:00Z"},
	}))

	all, err := s.ListWorkouts(ctx, models.WorkoutRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "w3", all[0].ID, "newest first")

	windowed, err := s.ListWorkouts(ctx, models.WorkoutRange{StartDate: "2026-08-10", EndDate: "2026-08-20"})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "w2", windowed[0].ID)
}

func TestGetWorkout_LoadsSetsInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutWorkout(ctx, &models.Workout{ID: "w1", WorkoutDate: "2026-08-29"}))
	require.NoError(t, s.PutSet(ctx, &models.Set{ID: "s2", WorkoutID: "w1", ExerciseID: "e1", SetNumber: 2}))
	require.NoError(t, s.PutSet(ctx, &models.Set{ID: "s1", WorkoutID: "w1", ExerciseID: "e1", SetNumber: 1}))
	require.NoError(t, s.PutSet(ctx, &models.Set{ID: "x1", WorkoutID: "other", ExerciseID: "e1", SetNumber: 1}))

	got, err := s.GetWorkout(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got.Sets, 2)
	assert.Equal(t, "s1", got.Sets[0].ID)
	assert.Equal(t, "s2", got.Sets[1].ID)
}

func TestReplaceWorkout_SwapsAggregate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutWorkout(ctx, &models.Workout{ID: "temp-w", WorkoutDate: "2026-08-29"}))
	require.NoError(t, s.PutSet(ctx, &models.Set{ID: "temp-s", WorkoutID: "temp-w", ExerciseID: "e1", SetNumber: 1}))

	confirmed := &models.Workout{
		ID:          "srv-w",
		WorkoutDate: "2026-08-29",
		Sets: []models.Set{
			{ID: "srv-s", WorkoutID: "srv-w", ExerciseID: "e1", SetNumber: 1},
		},
	}
	require.NoError(t, s.ReplaceWorkout(ctx, "temp-w", confirmed))

	_, err := s.GetWorkout(ctx, "temp-w")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	_, err = s.GetSet(ctx, "temp-s")
	assert.True(t, errors.Is(err, common.ErrNotFound), "orphaned sets of the temp workout must be gone")

	got, err := s.GetWorkout(ctx, "srv-w")
	require.NoError(t, err)
	require.Len(t, got.Sets, 1)
	assert.Equal(t, "srv-s", got.Sets[0].ID)
}

func TestDeleteWorkout_CascadesToSets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutWorkout(ctx, &models.Workout{ID: "w1", WorkoutDate: "2026-08-29"}))
	require.NoError(t, s.PutSet(ctx, &models.Set{ID: "s1", WorkoutID: "w1", ExerciseID: "e1", SetNumber: 1}))

	require.NoError(t, s.DeleteWorkout(ctx, "w1"))

	_, err := s.GetSet(ctx, "s1")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestTemplates_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tpl := &models.WorkoutTemplate{
		ID:   "t1",
		Name: "Push Day",
		Exercises: []models.TemplateExercise{
			{ID: "te1", TemplateID: "t1", ExerciseID: "e1", OrderIndex: 0},
			{ID: "te2", TemplateID: "t1", ExerciseID: "e2", OrderIndex: 1},
		},
	}
	require.NoError(t, s.PutTemplate(ctx, tpl))

	got, err := s.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Push Day", got.Name)
	require.Len(t, got.Exercises, 2, "template exercises travel inside the document")
	assert.Equal(t, "e2", got.Exercises[1].ExerciseID)
}
