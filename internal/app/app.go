package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/cohort/internal/config"
	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/memstore"
	"github.com/five82/cohort/internal/docstore/remote"
	"github.com/five82/cohort/internal/prefs"
	"github.com/five82/cohort/internal/realtime"
	"github.com/five82/cohort/internal/state"
	"github.com/five82/cohort/internal/training"
	"github.com/five82/cohort/internal/ui"
)

// Options configure the cohort application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/cohort/prefs.toml
	PollEvery  int    // roster poll in seconds; zero uses default
	Demo       bool   // seeded in-memory backend instead of backend_url
	Debug      bool
}

// Run boots the cohort TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := openLogger(cfg.LogPath(), opts.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	rt, err := Start(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}
	defer rt.Close()

	return ui.Run(ui.Options{
		Context:    ctx,
		Store:      rt.Store,
		Actions:    rt.Service,
		Connection: rt.Tracker,
		LogPath:    cfg.LogPath(),
		ThemeName:  userPrefs.Theme,
		ViewName:   userPrefs.View,
		LogLevel:   userPrefs.LogLevel,
		PrefsPath:  opts.PrefsPath,
	})
}

// Runtime is the wired backend, subscription manager and shared store that
// the UI reads from.
type Runtime struct {
	Store   *state.Store
	Service *training.Service
	Tracker *realtime.Tracker
	Metrics *prometheus.Registry
	User    training.User

	backend  docstore.Backend
	registry *realtime.Registry
	remote   *remote.Client
	server   *http.Server
	logger   *log.Logger
	cancel   context.CancelFunc
	views    []liveView
}

// liveView is one role subscription and the registry key it lives under.
type liveView struct {
	key    string
	attach func()
}

// reviveEvery re-checks idle views even without a connection change, so a
// key skipped while throttled comes back once the error storm has passed.
const reviveEvery = realtime.DecayInterval

// Start connects to the backend, signs the configured user in and attaches
// the live subscriptions for their role. Call Close when done.
func Start(ctx context.Context, cfg config.Config, opts Options, logger *log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(ctx)
	rt := &Runtime{Store: &state.Store{}, logger: logger, cancel: cancel}

	uid, err := rt.openBackend(ctx, cfg, opts.Demo)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var trackerOpts []realtime.TrackerOption
	trackerOpts = append(trackerOpts, realtime.WithLogger(logger.WithPrefix("tracker")))
	if prober := rt.prober(cfg); prober != nil {
		trackerOpts = append(trackerOpts, realtime.WithProber(prober))
	}
	rt.Tracker = realtime.NewTracker(rt.backend, trackerOpts...)
	rt.Tracker.OnChange(rt.Store.SetConnection)
	rt.Store.SetConnection(rt.Tracker.State())
	go rt.Tracker.Run(ctx)

	rt.Metrics = prometheus.NewRegistry()
	rt.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := realtime.NewMetrics(rt.Metrics)
	if cfg.MetricsAddr != "" {
		rt.serveMetrics(cfg.MetricsAddr)
	}

	rt.registry = realtime.NewRegistry(rt.backend, rt.Tracker,
		realtime.WithRegistryLogger(logger.WithPrefix("realtime")),
		realtime.WithMetrics(metrics),
		realtime.WithCooldown(cfg.Cooldown),
	)
	rt.Service = training.NewService(rt.backend, rt.registry,
		training.WithLogger(logger.WithPrefix("training")),
		training.WithTimeout(cfg.RequestTimeout),
	)

	user, err := rt.Service.EnsureUser(ctx, uid, cfg.UserEmail, cfg.AdminEmail)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("sign in %s: %w", uid, err)
	}
	rt.User = user
	rt.Store.SetUser(user)
	logger.Info("signed in", "uid", user.ID, "role", user.Role, "demo", opts.Demo)

	rt.subscribe(user)
	rt.watchConnection(ctx)
	if user.Role == training.RoleAdmin {
		interval := defaultPollInterval
		if opts.PollEvery > 0 {
			interval = time.Duration(opts.PollEvery) * time.Second
		}
		StartPoller(ctx, rt.Store, rt.Service, interval, logger.WithPrefix("roster"))
	}
	return rt, nil
}

// openBackend picks the seeded in-memory store or the remote client and
// returns the user id to sign in as.
func (rt *Runtime) openBackend(ctx context.Context, cfg config.Config, demo bool) (string, error) {
	if demo {
		store := memstore.New()
		if err := training.Seed(ctx, store, time.Now()); err != nil {
			return "", fmt.Errorf("seed demo data: %w", err)
		}
		rt.backend = store
		uid := cfg.UserID
		if uid == "" {
			uid = training.DemoTraineeID
			if cfg.Role == string(training.RoleAdmin) {
				uid = training.DemoAdminID
			}
		}
		return uid, nil
	}

	if cfg.UserID == "" {
		return "", errors.New("user_id is required in config unless running with -demo")
	}
	client, err := remote.NewClient(cfg.BackendURL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		remote.WithLogger(rt.logger.WithPrefix("remote")),
	)
	if err != nil {
		return "", fmt.Errorf("init backend client: %w", err)
	}
	rt.backend = client
	rt.remote = client
	return cfg.UserID, nil
}

// prober measures latency against probe_url, or the remote backend's health
// endpoint. The in-memory backend has nothing to probe.
func (rt *Runtime) prober(cfg config.Config) realtime.Prober {
	switch {
	case cfg.ProbeURL != "":
		return realtime.NewHTTPProber(cfg.ProbeURL)
	case rt.remote != nil:
		return realtime.NewHTTPProber(rt.remote.HealthURL())
	default:
		return nil
	}
}

// subscribe attaches the live views for user. Admins watch every record;
// trainees only their own.
func (rt *Runtime) subscribe(user training.User) {
	svc, store := rt.Service, rt.Store

	var (
		attendance  training.AttendanceFilter
		assessments training.AssessmentFilter
		grades      training.GradeFilter
	)
	if user.Role != training.RoleAdmin {
		attendance.TraineeID = user.ID
		assessments.TraineeID = user.ID
		grades.TraineeID = user.ID
	}

	rt.views = []liveView{
		{training.ModulesQuery(training.ModulesLimit).Key(), func() {
			svc.SubscribeModules(training.ModulesLimit, store.SetModules)
		}},
		{training.AttendanceQuery(attendance, training.AttendanceLimit).Key(), func() {
			svc.SubscribeAttendance(attendance, training.AttendanceLimit, store.SetAttendance)
		}},
		{training.AssessmentsQuery(assessments, training.AssessmentsLimit).Key(), func() {
			svc.SubscribeAssessments(assessments, training.AssessmentsLimit, store.SetAssessments)
		}},
		{training.GradesQuery(grades, training.GradesLimit).Key(), func() {
			svc.SubscribeGrades(grades, training.GradesLimit, store.SetGrades)
		}},
		{training.MessagesQuery(user.ID, training.MessagesLimit).Key(), func() {
			svc.SubscribeMessages(user.ID, training.MessagesLimit, store.SetMessages)
		}},
	}
	for _, v := range rt.views {
		v.attach()
	}
}

// watchConnection re-attaches idle views whenever the tracker comes back
// online, and every reviveEvery in case a throttle has lifted.
func (rt *Runtime) watchConnection(ctx context.Context) {
	wake := make(chan struct{}, 1)
	var (
		mu      sync.Mutex
		offline = rt.Tracker.State().Offline()
	)
	rt.Tracker.OnChange(func(s realtime.ConnectionState) {
		mu.Lock()
		back := offline && !s.Offline()
		offline = s.Offline()
		mu.Unlock()
		if !back {
			return
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		ticker := time.NewTicker(reviveEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
			case <-ticker.C:
			}
			rt.revive()
		}
	}()
}

// revive re-subscribes every view whose listener was skipped, terminated or
// given up on. Views with a live listener or a pending resume are left alone.
func (rt *Runtime) revive() {
	if rt.Tracker.State().Offline() || rt.Tracker.ShouldThrottle() {
		return
	}
	n := 0
	for _, v := range rt.views {
		if rt.registry.Idle(v.key) {
			v.attach()
			n++
		}
	}
	if n > 0 {
		rt.logger.Info("re-attached live views", "count", n)
	}
}

func (rt *Runtime) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{}))
	rt.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := rt.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	rt.logger.Info("serving metrics", "addr", addr)
}

// Close cancels background work and releases every subscription.
func (rt *Runtime) Close() {
	rt.cancel()
	if rt.Service != nil {
		rt.Service.Close()
	}
	if rt.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = rt.server.Shutdown(shutdownCtx)
		cancel()
	}
	if rt.remote != nil {
		rt.remote.Close()
	}
}
