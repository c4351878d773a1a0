// Package models defines the entity types mirrored from the server plus the
// local-only types used by the sync machinery. Timestamps are ISO-8601
// strings exactly as the server sends them; snapshot fields are denormalized
// copies frozen at creation time so history shows what a record looked like
// when it was logged.
package models

// WorkoutType distinguishes lifting sessions from cardio.
type WorkoutType string

const (
	WorkoutTypeLifting WorkoutType = "lifting"
	WorkoutTypeCardio  WorkoutType = "cardio"
)

// SetType classifies a logged set.
type SetType string

const (
	SetTypeWarmup  SetType = "warmup"
	SetTypeNormal  SetType = "normal"
	SetTypeDropSet SetType = "drop_set"
	SetTypeFailure SetType = "failure"
)

type Exercise struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	MuscleGroup *string `json:"muscle_group"`
	Equipment   *string `json:"equipment"`
	IsCustom    bool    `json:"is_custom"`
	UserID      *string `json:"user_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type TemplateExercise struct {
	ID         string  `json:"id"`
	TemplateID string  `json:"template_id"`
	ExerciseID string  `json:"exercise_id"`
	OrderIndex int     `json:"order_index"`
	TargetSets *int    `json:"target_sets"`
	TargetReps *int    `json:"target_reps"`
	Notes      *string `json:"notes"`
}

type WorkoutTemplate struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Name        string             `json:"name"`
	WorkoutType WorkoutType        `json:"workout_type"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	Exercises   []TemplateExercise `json:"exercises,omitempty"`
}

type Set struct {
	ID                   string   `json:"id"`
	WorkoutID            string   `json:"workout_id"`
	ExerciseID           string   `json:"exercise_id"`
	ExerciseNameSnapshot string   `json:"exercise_name_snapshot"`
	SetNumber            int      `json:"set_number"`
	SetType              SetType  `json:"set_type"`
	Weight               *float64 `json:"weight"`
	Reps                 *int     `json:"reps"`
	RPE                  *float64 `json:"rpe"`
	IsCompleted          bool     `json:"is_completed"`
	CompletedAt          *string  `json:"completed_at"`
	CreatedAt            string   `json:"created_at"`
}

type Workout struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"user_id"`
	TemplateID           *string     `json:"template_id"`
	TemplateNameSnapshot *string     `json:"template_name_snapshot"`
	WorkoutType          WorkoutType `json:"workout_type"`
	WorkoutDate          string      `json:"workout_date"`
	StartedAt            string      `json:"started_at"`
	CompletedAt          *string     `json:"completed_at"`
	CreatedAt            string      `json:"created_at"`
	UpdatedAt            string      `json:"updated_at"`
	Sets                 []Set       `json:"sets,omitempty"`
}

// Request DTOs sent to the server. Shapes match the REST API.

type CreateTemplateExercise struct {
	ExerciseID string  `json:"exercise_id"`
	OrderIndex int     `json:"order_index"`
	TargetSets *int    `json:"target_sets,omitempty"`
	TargetReps *int    `json:"target_reps,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type CreateTemplateRequest struct {
	Name        string                   `json:"name"`
	WorkoutType WorkoutType              `json:"workout_type,omitempty"`
	Exercises   []CreateTemplateExercise `json:"exercises"`
}

type CreateExerciseRequest struct {
	Name        string  `json:"name"`
	MuscleGroup *string `json:"muscle_group,omitempty"`
	Equipment   *string `json:"equipment,omitempty"`
}

type CreateWorkoutRequest struct {
	TemplateID  *string     `json:"template_id,omitempty"`
	WorkoutType WorkoutType `json:"workout_type,omitempty"`
	WorkoutDate string      `json:"workout_date"`
	StartedAt   string      `json:"started_at"`
}

type CreateSetRequest struct {
	ExerciseID string   `json:"exercise_id"`
	SetNumber  int      `json:"set_number"`
	SetType    SetType  `json:"set_type,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
	Reps       *int     `json:"reps,omitempty"`
	RPE        *float64 `json:"rpe,omitempty"`
}

type UpdateSetRequest struct {
	SetType     *SetType `json:"set_type,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	RPE         *float64 `json:"rpe,omitempty"`
	IsCompleted *bool    `json:"is_completed,omitempty"`
}

// ExerciseFilter narrows GetExercises results.
type ExerciseFilter struct {
	Search      string
	MuscleGroup string
	Equipment   string
}

// WorkoutRange narrows GetWorkouts results to a date window (inclusive,
// dates formatted YYYY-MM-DD). Zero values mean unbounded.
type WorkoutRange struct {
	StartDate string
	EndDate   string
}
