// Package syncer owns reconciliation with the server: draining the durable
// mutation queue in enqueue order, pulling the server's canonical state
// back into the local mirror, and publishing sync status to subscribers.
// At most one drain+pull sequence runs at a time; a second trigger while
// one is in flight is dropped, not queued.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/faddenpatrick/ironledger/internal/api"
	"github.com/faddenpatrick/ironledger/internal/logging"
	"github.com/faddenpatrick/ironledger/internal/models"
	"github.com/faddenpatrick/ironledger/internal/store"
)

// API is the transport surface the syncer needs: replay of recorded
// mutations plus the pull-phase reads.
type API interface {
	Do(ctx context.Context, method, path string, body json.RawMessage) error
	Get(ctx context.Context, path string, params url.Values, out any) error
}

// OnlineFunc reports current connectivity.
type OnlineFunc func() bool

// maxRejectionAttempts caps replays of mutations the server has
// authoritatively rejected (4xx). After this many failed drains such an
// item is abandoned instead of retried forever. Transient failures
// (network, 5xx) keep retrying without a ceiling.
const maxRejectionAttempts = 5

const pullFetchLimit = 1000

// Syncer is the single owner of the drain+pull sequence.
type Syncer struct {
	store  *store.Store
	api    API
	online OnlineFunc
	log    logging.Logger
	pub    *publisher

	// days of history fetched by the pull phase
	workoutWindow int
	mealWindow    int

	// guards the whole drain+pull sequence; TryLock makes a second
	// concurrent run a no-op rather than a waiter
	runMu sync.Mutex

	now func() time.Time
}

func New(s *store.Store, a API, online OnlineFunc, log logging.Logger, workoutWindowDays, mealWindowDays int) *Syncer {
	return &Syncer{
		store:         s,
		api:           a,
		online:        online,
		log:           log,
		pub:           newPublisher(log),
		workoutWindow: workoutWindowDays,
		mealWindow:    mealWindowDays,
		now:           time.Now,
	}
}

// Subscribe registers a status listener; the returned function removes it.
func (s *Syncer) Subscribe(fn Listener) func() {
	return s.pub.Subscribe(fn)
}

// Status returns the latest published status.
func (s *Syncer) Status() Status {
	return s.pub.Current()
}

// PendingCount reports how many queued mutations await confirmation.
func (s *Syncer) PendingCount(ctx context.Context) (int, error) {
	return s.store.PendingCount(ctx)
}

// RefreshStatus recomputes the pending count from the store and publishes
// it. Used on startup so subscribers see the persisted backlog.
func (s *Syncer) RefreshStatus(ctx context.Context) error {
	pending, err := s.store.PendingCount(ctx)
	if err != nil {
		return err
	}
	last, err := s.store.LastSyncTime(ctx)
	if err != nil {
		return err
	}
	s.pub.update(func(st *Status) {
		st.PendingCount = pending
		if !last.IsZero() {
			t := last
			st.LastSyncTime = &t
		}
	})
	return nil
}

// ProcessQueue drains the mutation queue. No-op when offline or when
// another sync is already running.
func (s *Syncer) ProcessQueue(ctx context.Context) error {
	if !s.online() {
		s.log.Info(ctx, "cannot sync - offline")
		return nil
	}
	if !s.runMu.TryLock() {
		s.log.Info(ctx, "sync already in progress")
		return nil
	}
	defer s.runMu.Unlock()
	return s.drain(ctx)
}

// PullData refreshes every mirrored collection from the server. No-op when
// offline or when another sync is already running.
func (s *Syncer) PullData(ctx context.Context) error {
	if !s.online() {
		s.log.Info(ctx, "cannot pull data - offline")
		return nil
	}
	if !s.runMu.TryLock() {
		s.log.Info(ctx, "sync already in progress")
		return nil
	}
	defer s.runMu.Unlock()
	return s.publishPullResult(s.pull(ctx))
}

func (s *Syncer) publishPullResult(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	s.pub.update(func(st *Status) { st.Error = msg })
	return err
}

// FullSync drains the queue and then pulls, unconditionally: even when the
// drain left failed items behind, a pull still refreshes the
// server-authoritative state for everything else. The returned error is
// the pull's; per-item drain failures are reflected in the status instead.
func (s *Syncer) FullSync(ctx context.Context) error {
	if !s.runMu.TryLock() {
		s.log.Info(ctx, "sync already in progress")
		return nil
	}
	defer s.runMu.Unlock()

	s.log.Info(ctx, "starting full sync")
	if err := s.drain(ctx); err != nil {
		return err
	}
	if err := s.publishPullResult(s.pull(ctx)); err != nil {
		return err
	}
	s.log.Info(ctx, "full sync complete")
	return nil
}

// TriggerSync is the manual sync entry point: a full sync, or a no-op when
// offline.
func (s *Syncer) TriggerSync(ctx context.Context) error {
	if !s.online() {
		s.log.Info(ctx, "cannot sync - offline")
		return nil
	}
	return s.FullSync(ctx)
}

// drain replays every unsynced queue item in ascending sequence order. A
// failing item is recorded and skipped; it never blocks the items behind
// it. Store failures abort the drain and surface in the status.
func (s *Syncer) drain(ctx context.Context) (err error) {
	s.pub.update(func(st *Status) {
		st.IsSyncing = true
		st.Error = ""
	})
	defer func() {
		if err != nil {
			msg := err.Error()
			s.pub.update(func(st *Status) {
				st.IsSyncing = false
				st.Error = msg
			})
		}
	}()

	items, err := s.store.Unsynced(ctx)
	if err != nil {
		return fmt.Errorf("loading queue: %w", err)
	}
	s.log.Info(ctx, "processing sync queue", "items", len(items))

	for _, item := range items {
		replayErr := s.api.Do(ctx, string(item.Method), item.Endpoint, item.Payload)
		if replayErr == nil {
			if item.Method == models.MethodPost && item.EntityID != "" {
				if err := s.retireLocal(ctx, item); err != nil {
					return fmt.Errorf("retiring local copy for item %d: %w", item.Seq, err)
				}
			}
			if err := s.store.MarkSynced(ctx, item.Seq); err != nil {
				return fmt.Errorf("marking item %d synced: %w", item.Seq, err)
			}
			continue
		}

		s.log.Error(ctx, "failed to sync queue item", "seq", item.Seq, "endpoint", item.Endpoint, "error", replayErr)
		if api.IsAuthoritativeRejection(replayErr) && item.Attempts+1 >= maxRejectionAttempts {
			s.log.Warn(ctx, "abandoning permanently rejected mutation", "seq", item.Seq, "attempts", item.Attempts+1)
			if err := s.store.MarkAbandoned(ctx, item.Seq, replayErr.Error()); err != nil {
				return fmt.Errorf("abandoning item %d: %w", item.Seq, err)
			}
			continue
		}
		if err := s.store.MarkError(ctx, item.Seq, replayErr.Error()); err != nil {
			return fmt.Errorf("recording error on item %d: %w", item.Seq, err)
		}
	}

	syncedAt := s.now().UTC()
	if err := s.store.SetLastSyncTime(ctx, syncedAt); err != nil {
		return fmt.Errorf("recording sync time: %w", err)
	}
	pending, err := s.store.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("counting pending items: %w", err)
	}

	s.pub.update(func(st *Status) {
		st.IsSyncing = false
		st.PendingCount = pending
		st.LastSyncTime = &syncedAt
	})
	return nil
}

// retireLocal removes the optimistic record a confirmed create was written
// under. The create replay does not report the server-assigned id, so the
// temp-id copy is dropped here and the pull re-mirrors the entity under its
// real id, leaving exactly one live copy.
func (s *Syncer) retireLocal(ctx context.Context, item models.QueueItem) error {
	switch item.EntityType {
	case "exercise":
		return s.store.DeleteExercise(ctx, item.EntityID)
	case "template":
		return s.store.DeleteTemplate(ctx, item.EntityID)
	case "workout":
		return s.store.DeleteWorkout(ctx, item.EntityID)
	case "set":
		return s.store.DeleteSet(ctx, item.EntityID)
	case "mealCategory":
		return s.store.DeleteMealCategory(ctx, item.EntityID)
	case "food":
		return s.store.DeleteFood(ctx, item.EntityID)
	case "meal":
		return s.store.DeleteMeal(ctx, item.EntityID)
	case "mealItem":
		return s.store.DeleteMealItem(ctx, item.EntityID)
	default:
		s.log.Warn(ctx, "confirmed create for unknown entity type", "type", item.EntityType, "id", item.EntityID)
		return nil
	}
}

// pull sequentially overwrites each mirrored collection with the server's
// canonical view. A failing collection is logged and skipped so the others
// still refresh; the combined error is returned after the pass.
func (s *Syncer) pull(ctx context.Context) error {
	var errs []error

	fail := func(name string, err error) {
		s.log.Error(ctx, "failed to pull collection", "collection", name, "error", err)
		errs = append(errs, fmt.Errorf("pulling %s: %w", name, err))
	}

	var exercises listResponse[models.Exercise]
	if err := s.getRetry(ctx, "/exercises", limitParams(), &exercises); err != nil {
		fail("exercises", err)
	} else if err := s.store.BulkPutExercises(ctx, exercises.Items); err != nil {
		return fmt.Errorf("storing exercises: %w", err)
	}

	var templates []models.WorkoutTemplate
	if err := s.getRetry(ctx, "/workouts/templates", nil, &templates); err != nil {
		fail("templates", err)
	} else if err := s.store.BulkPutTemplates(ctx, templates); err != nil {
		return fmt.Errorf("storing templates: %w", err)
	}

	var workouts []models.Workout
	workoutParams := url.Values{}
	workoutParams.Set("start_date", s.windowStart(s.workoutWindow))
	if err := s.getRetry(ctx, "/workouts", workoutParams, &workouts); err != nil {
		fail("workouts", err)
	} else if err := s.store.BulkPutWorkouts(ctx, workouts); err != nil {
		return fmt.Errorf("storing workouts: %w", err)
	}

	var categories []models.MealCategory
	if err := s.getRetry(ctx, "/nutrition/meal-categories", nil, &categories); err != nil {
		fail("meal categories", err)
	} else if err := s.store.BulkPutMealCategories(ctx, categories); err != nil {
		return fmt.Errorf("storing meal categories: %w", err)
	}

	var foods listResponse[models.Food]
	if err := s.getRetry(ctx, "/nutrition/foods", limitParams(), &foods); err != nil {
		fail("foods", err)
	} else if err := s.store.BulkPutFoods(ctx, foods.Items); err != nil {
		return fmt.Errorf("storing foods: %w", err)
	}

	var meals []models.Meal
	mealParams := url.Values{}
	mealParams.Set("date", s.windowStart(s.mealWindow))
	if err := s.getRetry(ctx, "/nutrition/meals", mealParams, &meals); err != nil {
		fail("meals", err)
	} else if err := s.store.BulkPutMeals(ctx, meals); err != nil {
		return fmt.Errorf("storing meals: %w", err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.log.Info(ctx, "data pulled successfully")
	return nil
}

// getRetry wraps a pull GET in a short fibonacci backoff so one flaky
// response does not leave a collection stale for a whole sync cycle.
func (s *Syncer) getRetry(ctx context.Context, path string, params url.Values, out any) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(s.api.Get(ctx, path, params, out))
	})
}

func (s *Syncer) windowStart(days int) string {
	return s.now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
}

func limitParams() url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pullFetchLimit))
	return params
}

// listResponse is the paginated envelope of the catalog endpoints.
type listResponse[T any] struct {
	Items []T `json:"items"`
}
