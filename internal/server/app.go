// Package server wires and runs the Eternal Sentinel server: the state
// store, job queue runners, scheduler, domain workers, and HTTP surface,
// plus graceful shutdown. Grounded on the teacher's app.go goroutine/signal
// shape, generalized from a single gRPC goroutine to the several
// long-running loops this system needs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/eternalsentinel/sentinel/internal/clock"
	"github.com/eternalsentinel/sentinel/internal/logging"
	"github.com/eternalsentinel/sentinel/internal/server/config"
	"github.com/eternalsentinel/sentinel/internal/server/httpapi"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/scheduler"
	"github.com/eternalsentinel/sentinel/internal/server/store"
	"github.com/eternalsentinel/sentinel/internal/server/transports"
	"github.com/eternalsentinel/sentinel/internal/server/vaultstore"
	"github.com/eternalsentinel/sentinel/internal/server/workers"
)

// App owns every long-running component of the Eternal Sentinel core.
type App struct {
	config    *config.Config
	logger    logging.Logger
	clock     clock.Clock
	store     store.Manager
	scheduler *scheduler.Scheduler
	runners   []*queue.Runner
	httpSrv   *http.Server
}

// NewApp wires the state store, job queue runners, scheduler, domain
// workers, and HTTP surface described by spec §4/§6.
func NewApp(c *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)
	sysClock := clock.System{}

	mgr, err := store.NewPostgresManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("server: init store: %w", err)
	}

	jobRepo := queue.NewPostgresRepository(mgr.Conn())

	emailer := transports.NewLoggingEmailer(logger)
	smsSender := transports.NewLoggingSMSSender(logger)
	notify := &workers.NotifyWorker{Emailer: emailer, SMS: smsSender}

	checkinWorker := &workers.CheckinWorker{
		CheckIns:       mgr.CheckIns(),
		PollingConfigs: mgr.PollingConfigs(),
		Users:          mgr.Users(),
		Queue:          jobRepo,
		Clock:          sysClock,
		PublicBaseURL:  c.PublicBaseURL,
		Logger:         logger,
	}
	escalationWorker := &workers.EscalationWorker{DB: mgr.Conn(), Clock: sysClock, Logger: logger}
	releaseWorker := &workers.ReleaseWorker{
		DB:            mgr.Conn(),
		Clock:         sysClock,
		Users:         mgr.Users(),
		Letters:       mgr.Letters(),
		Queue:         jobRepo,
		Audit:         mgr.AuditLog(),
		PublicBaseURL: c.PublicBaseURL,
		Logger:        logger,
	}

	runners := []*queue.Runner{
		{
			Queue: queue.CheckinQueue, Repo: jobRepo, Handler: checkinWorker.HandleCheckin,
			Concurrency: int64(c.WorkerConcurrency), BaseBackoff: c.CheckinQueueBaseBackoff,
			PollEvery: time.Second, Clock: sysClock, Logger: logger,
		},
		{
			Queue: queue.EscalationQueue, Repo: jobRepo, Handler: escalationWorker.HandleEscalation,
			Concurrency: int64(c.WorkerConcurrency), BaseBackoff: c.EscalationQueueBaseBackoff,
			PollEvery: time.Second, Clock: sysClock, Logger: logger,
		},
		{
			// Serialized within this process only: each replica runs its own
			// release Runner. The release worker's row lock and TRIGGERED
			// check keep the death protocol to at most one run per user.
			Queue: queue.ReleaseQueue, Repo: jobRepo, Handler: releaseWorker.HandleRelease,
			Concurrency: int64(c.ReleaseConcurrency), BaseBackoff: c.EscalationQueueBaseBackoff,
			PollEvery: time.Second, Clock: sysClock, Logger: logger,
		},
		{
			Queue: queue.EmailQueue, Repo: jobRepo, Handler: notify.HandleEmail,
			Concurrency: int64(c.WorkerConcurrency), BaseBackoff: c.CheckinQueueBaseBackoff,
			PollEvery: time.Second, Clock: sysClock, Logger: logger,
		},
		{
			Queue: queue.SmsQueue, Repo: jobRepo, Handler: notify.HandleSMS,
			Concurrency: int64(c.WorkerConcurrency), BaseBackoff: c.CheckinQueueBaseBackoff,
			PollEvery: time.Second, Clock: sysClock, Logger: logger,
		},
	}

	sched := scheduler.NewScheduler(mgr.Conn(), sysClock, logger)
	sched.SweepEvery = c.SchedulerInterval

	httpServer := &httpapi.Server{
		Store:         mgr,
		Queue:         jobRepo,
		VaultStore:    vaultstore.New(c),
		Clock:         sysClock,
		Logger:        logger,
		JWTSecret:     []byte(c.JWTSecret),
		PublicBaseURL: c.PublicBaseURL,
	}

	return &App{
		config:    c,
		logger:    logger,
		clock:     sysClock,
		store:     mgr,
		scheduler: sched,
		runners:   runners,
		httpSrv:   &http.Server{Addr: c.HTTPAddr, Handler: httpServer.Routes()},
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the HTTP server, every queue runner, and the scheduler, and
// blocks until ctx is cancelled or a SIGINT/SIGTERM/SIGQUIT arrives, then
// shuts all of them down and reports the combined error via multierr — the
// ambient shutdown-aggregation pattern for a process with several
// independent long-running loops.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "server: starting")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var runErr error

	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		runErr = multierr.Append(runErr, err)
		mu.Unlock()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "server: http server failed", "error", err.Error())
			record(err)
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.scheduler.Run(ctx); err != nil {
			app.logger.Error(ctx, "server: scheduler failed", "error", err.Error())
			record(err)
		}
	}()

	for _, r := range app.runners {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && err != context.Canceled {
				app.logger.Error(ctx, "server: queue runner failed", "queue", r.Queue, "error", err.Error())
				record(err)
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.httpSrv.Shutdown(shutdownCtx); err != nil {
		record(fmt.Errorf("server: http shutdown: %w", err))
	}

	wg.Wait()
	return runErr
}
