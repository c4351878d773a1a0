package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/faddenpatrick/ironledger/internal/idgen"
	"github.com/faddenpatrick/ironledger/internal/logging"
	"github.com/faddenpatrick/ironledger/internal/models"
	"github.com/faddenpatrick/ironledger/internal/store"
)

// WorkoutService is the repository for the workout entity family:
// exercises, templates, workouts and sets.
type WorkoutService struct {
	store  *store.Store
	api    API
	online OnlineFunc
	log    logging.Logger
}

func NewWorkoutService(s *store.Store, api API, online OnlineFunc, log logging.Logger) *WorkoutService {
	return &WorkoutService{store: s, api: api, online: online, log: log}
}

// Exercises

// GetExercises serves the local mirror filtered per filter and, when
// online, refreshes the mirror from the server in the same call. The
// server's result wins; a failed refresh is logged and the local snapshot
// stands.
func (s *WorkoutService) GetExercises(ctx context.Context, filter models.ExerciseFilter) ([]models.Exercise, error) {
	local, err := s.store.ListExercises(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing local exercises: %w", err)
	}

	if !s.online() {
		return local, nil
	}

	params := url.Values{}
	if filter.Search != "" {
		params.Set("search", filter.Search)
	}
	if filter.MuscleGroup != "" {
		params.Set("muscle_group", filter.MuscleGroup)
	}
	if filter.Equipment != "" {
		params.Set("equipment", filter.Equipment)
	}

	var resp listResponse[models.Exercise]
	if err := s.api.Get(ctx, "/exercises", params, &resp); err != nil {
		s.log.Warn(ctx, "exercise refresh failed, serving local snapshot", "error", err)
		return local, nil
	}
	if err := s.store.BulkPutExercises(ctx, resp.Items); err != nil {
		return nil, fmt.Errorf("caching exercises: %w", err)
	}
	return resp.Items, nil
}

// CreateExercise applies the optimistic write path: temp-id record stored
// locally first, then confirmed against the server or queued.
func (s *WorkoutService) CreateExercise(ctx context.Context, req models.CreateExerciseRequest) (*models.Exercise, error) {
	now := nowISO()
	exercise := &models.Exercise{
		ID:          idgen.New(),
		Name:        req.Name,
		MuscleGroup: req.MuscleGroup,
		Equipment:   req.Equipment,
		IsCustom:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.PutExercise(ctx, exercise); err != nil {
		return nil, fmt.Errorf("storing exercise: %w", err)
	}

	if s.online() {
		var confirmed models.Exercise
		if err := s.api.Post(ctx, "/exercises", req, &confirmed); err == nil {
			if err := s.store.ReplaceExercise(ctx, exercise.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp exercise: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "exercise create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, "/exercises", req, "exercise", exercise.ID); err != nil {
		return nil, fmt.Errorf("queueing exercise create: %w", err)
	}
	return exercise, nil
}

// Templates

func (s *WorkoutService) GetTemplates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	local, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing local templates: %w", err)
	}

	if !s.online() {
		return local, nil
	}

	var templates []models.WorkoutTemplate
	if err := s.api.Get(ctx, "/workouts/templates", nil, &templates); err != nil {
		s.log.Warn(ctx, "template refresh failed, serving local snapshot", "error", err)
		return local, nil
	}
	if err := s.store.BulkPutTemplates(ctx, templates); err != nil {
		return nil, fmt.Errorf("caching templates: %w", err)
	}
	return templates, nil
}

func (s *WorkoutService) GetTemplate(ctx context.Context, id string) (*models.WorkoutTemplate, error) {
	if s.online() {
		var template models.WorkoutTemplate
		if err := s.api.Get(ctx, "/workouts/templates/"+id, nil, &template); err == nil {
			if err := s.store.PutTemplate(ctx, &template); err != nil {
				return nil, fmt.Errorf("caching template: %w", err)
			}
			return &template, nil
		} else {
			s.log.Warn(ctx, "template fetch failed, trying local", "id", id, "error", err)
		}
	}
	return s.store.GetTemplate(ctx, id)
}

func (s *WorkoutService) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.WorkoutTemplate, error) {
	now := nowISO()
	workoutType := req.WorkoutType
	if workoutType == "" {
		workoutType = models.WorkoutTypeLifting
	}
	template := &models.WorkoutTemplate{
		ID:          idgen.New(),
		Name:        req.Name,
		WorkoutType: workoutType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, e := range req.Exercises {
		template.Exercises = append(template.Exercises, models.TemplateExercise{
			ID:         idgen.New(),
			TemplateID: template.ID,
			ExerciseID: e.ExerciseID,
			OrderIndex: e.OrderIndex,
			TargetSets: e.TargetSets,
			TargetReps: e.TargetReps,
			Notes:      e.Notes,
		})
	}

	if err := s.store.PutTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("storing template: %w", err)
	}

	if s.online() {
		var confirmed models.WorkoutTemplate
		if err := s.api.Post(ctx, "/workouts/templates", req, &confirmed); err == nil {
			if err := s.store.ReplaceTemplate(ctx, template.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp template: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "template create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, "/workouts/templates", req, "template", template.ID); err != nil {
		return nil, fmt.Errorf("queueing template create: %w", err)
	}
	return template, nil
}

func (s *WorkoutService) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("deleting local template: %w", err)
	}

	if s.online() {
		if err := s.api.Delete(ctx, "/workouts/templates/"+id); err == nil {
			return nil
		} else {
			s.log.Warn(ctx, "template delete failed, queueing", "id", id, "error", err)
		}
	}
	return s.store.Enqueue(ctx, models.MethodDelete, "/workouts/templates/"+id, nil, "template", id)
}

// Workouts

func (s *WorkoutService) GetWorkouts(ctx context.Context, rng models.WorkoutRange) ([]models.Workout, error) {
	local, err := s.store.ListWorkouts(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("listing local workouts: %w", err)
	}

	if !s.online() {
		return local, nil
	}

	params := url.Values{}
	if rng.StartDate != "" {
		params.Set("start_date", rng.StartDate)
	}
	if rng.EndDate != "" {
		params.Set("end_date", rng.EndDate)
	}

	var workouts []models.Workout
	if err := s.api.Get(ctx, "/workouts", params, &workouts); err != nil {
		s.log.Warn(ctx, "workout refresh failed, serving local snapshot", "error", err)
		return local, nil
	}
	if err := s.store.BulkPutWorkouts(ctx, workouts); err != nil {
		return nil, fmt.Errorf("caching workouts: %w", err)
	}
	return workouts, nil
}

func (s *WorkoutService) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	if s.online() {
		var workout models.Workout
		if err := s.api.Get(ctx, "/workouts/"+id, nil, &workout); err == nil {
			if err := s.store.ReplaceWorkout(ctx, id, &workout); err != nil {
				return nil, fmt.Errorf("caching workout: %w", err)
			}
			return &workout, nil
		} else {
			s.log.Warn(ctx, "workout fetch failed, trying local", "id", id, "error", err)
		}
	}
	return s.store.GetWorkout(ctx, id)
}

// CreateWorkout synthesizes the local record with the template name
// snapshot taken from the locally cached template, when one is referenced
// and cached.
func (s *WorkoutService) CreateWorkout(ctx context.Context, req models.CreateWorkoutRequest) (*models.Workout, error) {
	now := nowISO()
	workoutType := req.WorkoutType
	if workoutType == "" {
		workoutType = models.WorkoutTypeLifting
	}
	startedAt := req.StartedAt
	if startedAt == "" {
		startedAt = now
	}

	workout := &models.Workout{
		ID:          idgen.New(),
		TemplateID:  req.TemplateID,
		WorkoutType: workoutType,
		WorkoutDate: req.WorkoutDate,
		StartedAt:   startedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
		Sets:        []models.Set{},
	}
	if req.TemplateID != nil {
		if template, err := s.store.GetTemplate(ctx, *req.TemplateID); err == nil {
			workout.TemplateNameSnapshot = &template.Name
		}
	}

	if err := s.store.PutWorkout(ctx, workout); err != nil {
		return nil, fmt.Errorf("storing workout: %w", err)
	}

	if s.online() {
		var confirmed models.Workout
		if err := s.api.Post(ctx, "/workouts", req, &confirmed); err == nil {
			if err := s.store.ReplaceWorkout(ctx, workout.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp workout: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "workout create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, "/workouts", req, "workout", workout.ID); err != nil {
		return nil, fmt.Errorf("queueing workout create: %w", err)
	}
	return workout, nil
}

// CompleteWorkout stamps completed_at locally and confirms or queues the
// server call.
func (s *WorkoutService) CompleteWorkout(ctx context.Context, id, completedAt string) (*models.Workout, error) {
	workout, err := s.store.GetWorkout(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading workout: %w", err)
	}
	workout.CompletedAt = &completedAt
	workout.UpdatedAt = nowISO()
	if err := s.store.PutWorkout(ctx, workout); err != nil {
		return nil, fmt.Errorf("storing workout: %w", err)
	}

	body := map[string]string{"completed_at": completedAt}
	if s.online() {
		var confirmed models.Workout
		if err := s.api.Post(ctx, "/workouts/"+id+"/complete", body, &confirmed); err == nil {
			if err := s.store.ReplaceWorkout(ctx, id, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing workout: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "workout complete failed, queueing", "id", id, "error", err)
		}
	}

	// no entity id: the completed workout is not an optimistic copy and
	// must stay in the mirror after the replay confirms
	if err := s.store.Enqueue(ctx, models.MethodPost, "/workouts/"+id+"/complete", body, "workout", ""); err != nil {
		return nil, fmt.Errorf("queueing workout complete: %w", err)
	}
	return workout, nil
}

// SaveWorkoutAsTemplate is an online-only server-side derivation.
func (s *WorkoutService) SaveWorkoutAsTemplate(ctx context.Context, workoutID, templateName string) (*models.WorkoutTemplate, error) {
	body := map[string]string{"template_name": templateName}
	var template models.WorkoutTemplate
	if err := s.api.Post(ctx, "/workouts/"+workoutID+"/save-as-template", body, &template); err != nil {
		return nil, err
	}
	if err := s.store.PutTemplate(ctx, &template); err != nil {
		return nil, fmt.Errorf("caching template: %w", err)
	}
	return &template, nil
}

// Sets

// AddSet synthesizes the set with the exercise name snapshot resolved from
// the locally cached catalog, so offline history does not flash empty.
func (s *WorkoutService) AddSet(ctx context.Context, workoutID string, req models.CreateSetRequest) (*models.Set, error) {
	setType := req.SetType
	if setType == "" {
		setType = models.SetTypeNormal
	}
	set := &models.Set{
		ID:         idgen.New(),
		WorkoutID:  workoutID,
		ExerciseID: req.ExerciseID,
		SetNumber:  req.SetNumber,
		SetType:    setType,
		Weight:     req.Weight,
		Reps:       req.Reps,
		RPE:        req.RPE,
		CreatedAt:  nowISO(),
	}
	if exercise, err := s.store.GetExercise(ctx, req.ExerciseID); err == nil {
		set.ExerciseNameSnapshot = exercise.Name
	}

	if err := s.store.PutSet(ctx, set); err != nil {
		return nil, fmt.Errorf("storing set: %w", err)
	}

	endpoint := "/workouts/" + workoutID + "/sets"
	if s.online() {
		var confirmed models.Set
		if err := s.api.Post(ctx, endpoint, req, &confirmed); err == nil {
			if err := s.store.ReplaceSet(ctx, set.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp set: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "set create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, endpoint, req, "set", set.ID); err != nil {
		return nil, fmt.Errorf("queueing set create: %w", err)
	}
	return set, nil
}

func (s *WorkoutService) UpdateSet(ctx context.Context, workoutID, setID string, req models.UpdateSetRequest) (*models.Set, error) {
	set, err := s.store.GetSet(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("loading set: %w", err)
	}
	if req.SetType != nil {
		set.SetType = *req.SetType
	}
	if req.Weight != nil {
		set.Weight = req.Weight
	}
	if req.Reps != nil {
		set.Reps = req.Reps
	}
	if req.RPE != nil {
		set.RPE = req.RPE
	}
	if req.IsCompleted != nil {
		set.IsCompleted = *req.IsCompleted
	}
	if err := s.store.PutSet(ctx, set); err != nil {
		return nil, fmt.Errorf("storing set: %w", err)
	}

	endpoint := "/workouts/" + workoutID + "/sets/" + setID
	if s.online() {
		var confirmed models.Set
		if err := s.api.Put(ctx, endpoint, req, &confirmed); err == nil {
			if err := s.store.ReplaceSet(ctx, setID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing set: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "set update failed, queueing", "id", setID, "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPut, endpoint, req, "set", setID); err != nil {
		return nil, fmt.Errorf("queueing set update: %w", err)
	}
	return set, nil
}

func (s *WorkoutService) DeleteSet(ctx context.Context, workoutID, setID string) error {
	if err := s.store.DeleteSet(ctx, setID); err != nil {
		return fmt.Errorf("deleting local set: %w", err)
	}

	endpoint := "/workouts/" + workoutID + "/sets/" + setID
	if s.online() {
		if err := s.api.Delete(ctx, endpoint); err == nil {
			return nil
		} else {
			s.log.Warn(ctx, "set delete failed, queueing", "id", setID, "error", err)
		}
	}
	return s.store.Enqueue(ctx, models.MethodDelete, endpoint, nil, "set", setID)
}
