// Package cli wires the full client together and exposes it through a
// small interactive shell. The shell is intentionally thin; all behavior
// lives in the services and the syncer.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/faddenpatrick/ironledger/internal/api"
	"github.com/faddenpatrick/ironledger/internal/config"
	"github.com/faddenpatrick/ironledger/internal/logging"
	"github.com/faddenpatrick/ironledger/internal/services"
	"github.com/faddenpatrick/ironledger/internal/store"
	"github.com/faddenpatrick/ironledger/internal/syncer"
)

type App struct {
	config    *config.Config
	log       logging.Logger
	store     *store.Store
	api       *api.Client
	workouts  *services.WorkoutService
	nutrition *services.NutritionService
	syncer    *syncer.Syncer
	monitor   *syncer.Monitor
	reader    *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	apiClient := api.New(cfg.ServerBaseURL, log,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithTokenCallback(func(ctx context.Context, t api.TokenPair) {
			var err error
			if t == (api.TokenPair{}) {
				err = st.DeleteTokens(ctx)
			} else {
				err = st.SaveTokens(ctx, t)
			}
			if err != nil {
				log.Error(ctx, "failed to persist tokens", "error", err)
			}
		}),
	)

	var saved api.TokenPair
	ok, err := st.LoadTokens(ctx, &saved)
	if err != nil {
		return nil, fmt.Errorf("loading saved tokens: %w", err)
	}
	if ok {
		apiClient.SetTokens(saved)
	}

	app := &App{
		config: cfg,
		log:    log,
		store:  st,
		api:    apiClient,
		reader: bufio.NewReader(os.Stdin),
	}

	app.syncer = syncer.New(st, apiClient, app.online, log,
		cfg.WorkoutPullWindowDays, cfg.MealPullWindowDays)
	app.monitor = syncer.NewMonitor(apiClient, app.syncer, log, cfg.OnlineCheckInterval)
	app.workouts = services.NewWorkoutService(st, apiClient, app.online, log)
	app.nutrition = services.NewNutritionService(st, apiClient, app.online, log)
	return app, nil
}

func (a *App) online() bool {
	return a.monitor.Online()
}

func (a *App) Run(ctx context.Context) error {
	a.monitor.Start(ctx)
	defer a.monitor.Close()
	defer a.store.Close()

	unsubscribe := a.syncer.Subscribe(func(st syncer.Status) {
		if st.Error != "" {
			fmt.Printf("sync error: %s\n", st.Error)
			return
		}
		if !st.IsSyncing {
			fmt.Printf("pending mutations: %d\n", st.PendingCount)
		}
	})
	defer unsubscribe()

	a.repl(ctx)
	return nil
}

func (a *App) repl(ctx context.Context) {
	fmt.Println("ironledger - type 'help' for commands")
	for {
		fmt.Print("> ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			a.printHelp()
		case "login":
			a.cmdLogin(ctx, args)
		case "logout":
			a.cmdLogout(ctx)
		case "sync":
			a.cmdSync(ctx)
		case "status":
			a.cmdStatus(ctx)
		case "exercises":
			a.cmdExercises(ctx, args)
		case "workouts":
			a.cmdWorkouts(ctx)
		case "meals":
			a.cmdMeals(ctx, args)
		case "summary":
			a.cmdSummary(ctx, args)
		case "exit", "quit":
			return
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
}

func (a *App) printHelp() {
	fmt.Println(`commands:
  login <email> <password>   authenticate against the server
  logout                     clear tokens and wipe local data
  sync                       run a full sync now
  status                     show connectivity and sync state
  exercises [search]         list exercises
  workouts                   list recent workouts
  meals <yyyy-mm-dd>         list meals for a day
  summary <yyyy-mm-dd>       nutrition summary for a day
  exit`)
}
