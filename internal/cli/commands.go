package cli

import (
	"context"
	"fmt"

	"github.com/faddenpatrick/ironledger/internal/models"
)

func (a *App) cmdLogin(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <email> <password>")
		return
	}
	if err := a.api.Login(ctx, args[0], args[1]); err != nil {
		fmt.Printf("login failed: %v\n", err)
		return
	}
	fmt.Println("logged in")
	a.monitor.Resume()
}

// cmdLogout clears the session and wipes the local mirror. The mirror
// belongs to the account, so it cannot survive the account going away.
func (a *App) cmdLogout(ctx context.Context) {
	a.api.ClearTokens(ctx)
	if err := a.store.ClearAll(ctx); err != nil {
		fmt.Printf("failed to clear local data: %v\n", err)
		return
	}
	if err := a.syncer.RefreshStatus(ctx); err != nil {
		a.log.Error(ctx, "failed to refresh sync status", "error", err)
	}
	fmt.Println("logged out, local data cleared")
}

func (a *App) cmdSync(ctx context.Context) {
	if err := a.syncer.TriggerSync(ctx); err != nil {
		fmt.Printf("sync failed: %v\n", err)
		return
	}
	fmt.Println("sync finished")
}

func (a *App) cmdStatus(ctx context.Context) {
	if a.online() {
		fmt.Println("connectivity: online")
	} else {
		fmt.Println("connectivity: offline")
	}
	st := a.syncer.Status()
	fmt.Printf("syncing: %v\n", st.IsSyncing)
	fmt.Printf("pending mutations: %d\n", st.PendingCount)
	if st.LastSyncTime != nil {
		fmt.Printf("last sync: %s\n", st.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("last sync: never")
	}
	if st.Error != "" {
		fmt.Printf("last error: %s\n", st.Error)
	}
}

func (a *App) cmdExercises(ctx context.Context, args []string) {
	var filter models.ExerciseFilter
	if len(args) > 0 {
		filter.Search = args[0]
	}
	exercises, err := a.workouts.GetExercises(ctx, filter)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, e := range exercises {
		group := ""
		if e.MuscleGroup != nil {
			group = *e.MuscleGroup
		}
		fmt.Printf("%-36s  %-30s  %s\n", e.ID, e.Name, group)
	}
	fmt.Printf("%d exercises\n", len(exercises))
}

func (a *App) cmdWorkouts(ctx context.Context) {
	workouts, err := a.workouts.GetWorkouts(ctx, models.WorkoutRange{})
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, w := range workouts {
		state := "in progress"
		if w.CompletedAt != nil {
			state = "completed"
		}
		fmt.Printf("%-36s  %-12s  %-12s  %d sets\n", w.ID, w.WorkoutDate, state, len(w.Sets))
	}
	fmt.Printf("%d workouts\n", len(workouts))
}

func (a *App) cmdMeals(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: meals <yyyy-mm-dd>")
		return
	}
	meals, err := a.nutrition.GetMeals(ctx, args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, m := range meals {
		fmt.Printf("%-36s  %-8s  %-20s  %d items\n", m.ID, m.MealTime, m.CategoryNameSnapshot, len(m.Items))
	}
	fmt.Printf("%d meals\n", len(meals))
}

func (a *App) cmdSummary(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: summary <yyyy-mm-dd>")
		return
	}
	sum, err := a.nutrition.GetNutritionSummary(ctx, args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s  calories %.0f  protein %.1fg  carbs %.1fg  fat %.1fg\n",
		sum.Date, sum.TotalCalories, sum.TotalProtein, sum.TotalCarbs, sum.TotalFat)
}
