package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faddenpatrick/ironledger/internal/api"
	"github.com/faddenpatrick/ironledger/internal/common"
	"github.com/faddenpatrick/ironledger/internal/logging"
	"github.com/faddenpatrick/ironledger/internal/models"
	"github.com/faddenpatrick/ironledger/internal/store"
)

// fakeTransport records replayed mutations in call order and serves pull
// responses from the per-path handler.
type fakeTransport struct {
	DoCalls []string
	DoFn    func(method, path string, body json.RawMessage) error
	GetFn   func(path string, params url.Values, out any) error
}

func (f *fakeTransport) Do(_ context.Context, method, path string, body json.RawMessage) error {
	f.DoCalls = append(f.DoCalls, method+" "+path)
	if f.DoFn == nil {
		return nil
	}
	return f.DoFn(method, path, body)
}

func (f *fakeTransport) Get(_ context.Context, path string, params url.Values, out any) error {
	if f.GetFn == nil {
		return errors.New("connection refused")
	}
	return f.GetFn(path, params, out)
}

func alwaysOnline() bool { return true }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSyncer(t *testing.T, st *store.Store, transport API) *Syncer {
	t.Helper()
	return New(st, transport, alwaysOnline, logging.NewDefault(), 30, 7)
}

func TestProcessQueue_ReplaysInEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/workouts", map[string]string{"workout_date": "2026-08-29"}, "workout", "w1"))
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/workouts/w1/sets", map[string]int{"set_number": 1}, "set", "s1"))
	require.NoError(t, st.Enqueue(ctx, models.MethodDelete, "/workouts/w1/sets/s1", nil, "set", "s1"))

	transport := &fakeTransport{}
	s := newTestSyncer(t, st, transport)

	require.NoError(t, s.ProcessQueue(ctx))

	assert.Equal(t, []string{
		"POST /workouts",
		"POST /workouts/w1/sets",
		"DELETE /workouts/w1/sets/s1",
	}, transport.DoCalls)

	pending, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	last, err := st.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero(), "a completed drain records its time")
}

func TestProcessQueue_FailedItemDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/b", nil, "exercise", "e2"))
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/c", nil, "exercise", "e3"))

	transport := &fakeTransport{
		DoFn: func(method, path string, body json.RawMessage) error {
			if path == "/b" {
				return errors.New("connection reset")
			}
			return nil
		},
	}
	s := newTestSyncer(t, st, transport)

	require.NoError(t, s.ProcessQueue(ctx))
	assert.Len(t, transport.DoCalls, 3, "every item is attempted")

	left, err := st.Unsynced(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1, "only the failed item stays queued")
	assert.Equal(t, "/b", left[0].Endpoint)
	assert.Equal(t, 1, left[0].Attempts)
	assert.Contains(t, left[0].LastError, "connection reset")
}

func TestProcessQueue_TransientFailuresRetryForever(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))

	transport := &fakeTransport{
		DoFn: func(method, path string, body json.RawMessage) error {
			return &api.Error{Status: http.StatusInternalServerError}
		},
	}
	s := newTestSyncer(t, st, transport)

	for i := 0; i < maxRejectionAttempts+2; i++ {
		require.NoError(t, s.ProcessQueue(ctx))
	}

	left, err := st.Unsynced(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1, "a transient failure is never abandoned")
	assert.Equal(t, maxRejectionAttempts+2, left[0].Attempts)
}

func TestProcessQueue_AbandonsRepeatedlyRejectedItem(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))

	transport := &fakeTransport{
		DoFn: func(method, path string, body json.RawMessage) error {
			return &api.Error{Status: http.StatusUnprocessableEntity, Detail: "name already exists"}
		},
	}
	s := newTestSyncer(t, st, transport)

	for i := 0; i < maxRejectionAttempts; i++ {
		require.NoError(t, s.ProcessQueue(ctx))
	}

	left, err := st.Unsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, left, "the dead-lettered item leaves the drain set")

	pending, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	assert.Len(t, transport.DoCalls, maxRejectionAttempts, "no replay after abandonment")
}

func TestProcessQueue_ReentrantCallIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))

	transport := &fakeTransport{}
	s := newTestSyncer(t, st, transport)

	s.runMu.Lock()
	require.NoError(t, s.ProcessQueue(ctx), "a concurrent trigger returns immediately")
	assert.Empty(t, transport.DoCalls)
	s.runMu.Unlock()

	require.NoError(t, s.ProcessQueue(ctx))
	assert.Len(t, transport.DoCalls, 1)
}

func TestProcessQueue_PublishesStatusTransitions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))

	s := newTestSyncer(t, st, &fakeTransport{})

	var seen []Status
	unsubscribe := s.Subscribe(func(st Status) { seen = append(seen, st) })
	defer unsubscribe()

	require.NoError(t, s.ProcessQueue(ctx))

	require.GreaterOrEqual(t, len(seen), 2)
	assert.True(t, seen[0].IsSyncing, "first notification marks the sync start")
	final := seen[len(seen)-1]
	assert.False(t, final.IsSyncing)
	assert.Zero(t, final.PendingCount)
	require.NotNil(t, final.LastSyncTime)
}

func TestPullData_OverwritesMirrors(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.PutExercise(ctx, &models.Exercise{ID: "stale", Name: "Old"}))

	transport := &fakeTransport{
		GetFn: func(path string, params url.Values, out any) error {
			switch path {
			case "/exercises":
				assert.Equal(t, "1000", params.Get("limit"))
				*(out.(*listResponse[models.Exercise])) = listResponse[models.Exercise]{
					Items: []models.Exercise{{ID: "e1", Name: "Squat"}},
				}
			case "/workouts/templates":
				*(out.(*[]models.WorkoutTemplate)) = []models.WorkoutTemplate{{ID: "t1", Name: "Push"}}
			case "/workouts":
				assert.NotEmpty(t, params.Get("start_date"))
				*(out.(*[]models.Workout)) = []models.Workout{{ID: "w1", WorkoutDate: "2026-08-29"}}
			case "/nutrition/meal-categories":
				*(out.(*[]models.MealCategory)) = []models.MealCategory{{ID: "c1", Name: "Breakfast"}}
			case "/nutrition/foods":
				*(out.(*listResponse[models.Food])) = listResponse[models.Food]{
					Items: []models.Food{{ID: "f1", Name: "Oats"}},
				}
			case "/nutrition/meals":
				assert.NotEmpty(t, params.Get("date"))
				*(out.(*[]models.Meal)) = []models.Meal{{ID: "m1", MealDate: "2026-08-29"}}
			default:
				return fmt.Errorf("unexpected path %s", path)
			}
			return nil
		},
	}
	s := newTestSyncer(t, st, transport)

	require.NoError(t, s.PullData(ctx))

	got, err := st.GetExercise(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Squat", got.Name)

	tpl, err := st.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Push", tpl.Name)

	meals, err := st.ListMeals(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Len(t, meals, 1)
}

func TestPullData_FailedCollectionDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	transport := &fakeTransport{
		GetFn: func(path string, params url.Values, out any) error {
			if path == "/workouts" {
				return &api.Error{Status: http.StatusInternalServerError}
			}
			if path == "/exercises" {
				*(out.(*listResponse[models.Exercise])) = listResponse[models.Exercise]{
					Items: []models.Exercise{{ID: "e1", Name: "Squat"}},
				}
			}
			return nil
		},
	}
	s := newTestSyncer(t, st, transport)

	err := s.PullData(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pulling workouts")

	got, storeErr := st.GetExercise(ctx, "e1")
	require.NoError(t, storeErr, "collections before the failing one still refresh")
	assert.Equal(t, "Squat", got.Name)

	st2 := s.Status()
	assert.NotEmpty(t, st2.Error)
}

func TestTriggerSync_OfflineIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))

	transport := &fakeTransport{}
	s := New(st, transport, func() bool { return false }, logging.NewDefault(), 30, 7)

	require.NoError(t, s.TriggerSync(ctx))
	assert.Empty(t, transport.DoCalls)

	pending, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestFullSync_DrainsThenPulls(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/exercises", map[string]string{"name": "Squat"}, "exercise", "e1"))

	var order []string
	transport := &fakeTransport{
		DoFn: func(method, path string, body json.RawMessage) error {
			order = append(order, "drain")
			return nil
		},
		GetFn: func(path string, params url.Values, out any) error {
			order = append(order, "pull")
			return nil
		},
	}
	s := newTestSyncer(t, st, transport)

	require.NoError(t, s.FullSync(ctx))
	require.NotEmpty(t, order)
	assert.Equal(t, "drain", order[0], "queued mutations replay before the pull overwrites mirrors")
}

func TestFullSync_ConfirmedCreateLeavesSingleCopy(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	temp := &models.Workout{ID: "temp-1234", WorkoutDate: "2026-08-29"}
	require.NoError(t, st.PutWorkout(ctx, temp))
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/workouts",
		map[string]string{"workout_date": temp.WorkoutDate}, "workout", temp.ID))

	transport := &fakeTransport{
		GetFn: func(path string, params url.Values, out any) error {
			if path == "/workouts" {
				*(out.(*[]models.Workout)) = []models.Workout{{ID: "server-1", WorkoutDate: "2026-08-29"}}
			}
			return nil
		},
	}
	s := newTestSyncer(t, st, transport)

	require.NoError(t, s.FullSync(ctx))

	_, err := st.GetWorkout(ctx, temp.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "the temp-id copy is retired on confirmation")

	workouts, err := st.ListWorkouts(ctx, models.WorkoutRange{})
	require.NoError(t, err)
	require.Len(t, workouts, 1, "exactly one live copy after reconciliation")
	assert.Equal(t, "server-1", workouts[0].ID)
}

func TestProcessQueue_ActionReplayKeepsLocalRecord(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	done := "2026-08-29T10:00:00Z"
	w := &models.Workout{ID: "w1", WorkoutDate: "2026-08-29", CompletedAt: &done}
	require.NoError(t, st.PutWorkout(ctx, w))
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/workouts/w1/complete",
		map[string]string{"completed_at": done}, "workout", ""))

	s := newTestSyncer(t, st, &fakeTransport{})
	require.NoError(t, s.ProcessQueue(ctx))

	got, err := st.GetWorkout(ctx, "w1")
	require.NoError(t, err, "a replayed action never drops the mirrored record")
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, done, *got.CompletedAt)
}

func TestRefreshStatus_LoadsPersistedState(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/a", nil, "exercise", "e1"))
	require.NoError(t, st.Enqueue(ctx, models.MethodPost, "/b", nil, "exercise", "e2"))

	s := newTestSyncer(t, st, &fakeTransport{})
	require.NoError(t, s.RefreshStatus(ctx))

	status := s.Status()
	assert.Equal(t, 2, status.PendingCount)
	assert.Nil(t, status.LastSyncTime)
}
