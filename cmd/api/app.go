package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	firebase "firebase.google.com/go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/georgemunganga/prepick-backend/internal/config"
	"github.com/georgemunganga/prepick-backend/internal/gateway"
	"github.com/georgemunganga/prepick-backend/internal/httpx"
	"github.com/georgemunganga/prepick-backend/internal/logger"
	"github.com/georgemunganga/prepick-backend/internal/metrics"
	"github.com/georgemunganga/prepick-backend/internal/modules/auth"
	"github.com/georgemunganga/prepick-backend/internal/modules/cart"
	"github.com/georgemunganga/prepick-backend/internal/modules/catalog"
	"github.com/georgemunganga/prepick-backend/internal/modules/checkout"
	"github.com/georgemunganga/prepick-backend/internal/modules/notify"
	"github.com/georgemunganga/prepick-backend/internal/modules/order"
	"github.com/georgemunganga/prepick-backend/internal/modules/orderwatch"
	"github.com/georgemunganga/prepick-backend/internal/modules/shop"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

const cartSweepEvery = 10 * time.Minute

// app holds every wired component of one process.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	db    *sql.DB
	fb    *firebase.App
	redis *redis.Client
	gw    gateway.Gateway

	userRepo user.Repository
	users    user.Service
	shops    shop.Service
	catalog  catalog.Service
	orders   order.Service
	carts    *cart.Registry
	cart     cart.Service
	checkout checkout.Service
	hub      *notify.Hub
	watchers *orderwatch.Manager
	auth     auth.Service

	stop context.CancelFunc
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	if err := a.openGateway(ctx); err != nil {
		a.Close()
		return nil, err
	}
	sessions, limiter, err := a.openSessions(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// ── Identity & shops ────────────────────────────────────
	a.userRepo = user.NewGatewayRepository(a.gw)
	a.users = user.NewService(a.userRepo)
	a.shops = shop.NewService(shop.NewGatewayRepository(a.gw))

	// ── Catalog, cart & orders ──────────────────────────────
	a.catalog = catalog.NewService(catalog.NewGatewayRepository(a.gw), a.shops)
	a.orders = order.NewService(order.NewGatewayRepository(a.gw), a.shops, a.metrics)
	a.carts = cart.NewRegistry()
	bg, stop := context.WithCancel(logger.Inject(ctx, log))
	a.stop = stop
	go a.carts.RunJanitor(bg, cartSweepEvery, cfg.SessionTTL)
	a.cart = cart.NewService(a.carts, a.catalog, a.shops)
	a.checkout = checkout.NewService(a.carts, a.orders, a.shops, a.metrics)

	// ── Notifications ───────────────────────────────────────
	a.hub = notify.NewHub(a.metrics)
	a.watchers = orderwatch.NewManager(a.orders, a.shops, a.hub, a.metrics)

	// ── Auth ────────────────────────────────────────────────
	var verifier auth.TokenVerifier
	if a.fb != nil {
		if verifier, err = auth.NewFirebaseVerifier(ctx, a.fb); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.auth = auth.NewService(auth.Deps{
		Users:    a.users,
		Records:  a.userRepo,
		Shops:    a.shops,
		Sessions: sessions,
		Limiter:  limiter,
		Verifier: verifier,
		OnSignOut: []auth.SignOutHook{
			func(_ context.Context, id session.Identity) { a.carts.Drop(id.SessionID) },
			func(_ context.Context, id session.Identity) { a.watchers.StopSession(id.SessionID) },
			func(_ context.Context, id session.Identity) { a.hub.Disconnect(id.UserID, id.SessionID) },
		},
	}, auth.Options{
		Secret:      []byte(cfg.JWTSecret),
		SessionTTL:  cfg.SessionTTL,
		MaxAttempts: cfg.MaxAttempts,
	})
	return a, nil
}

func (a *app) openGateway(ctx context.Context) error {
	switch a.cfg.GatewayDriver {
	case "postgres":
		db, err := sql.Open("postgres", a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.db = db
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		pg, err := gateway.NewPostgres(db, a.cfg.DatabaseURL, a.log)
		if err != nil {
			return err
		}
		a.gw = pg
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate documents table: %w", err)
		}
	case "firebase":
		var opts []option.ClientOption
		if a.cfg.FirebaseCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(a.cfg.FirebaseCredentialsJSON)))
		}
		fb, err := firebase.NewApp(ctx, &firebase.Config{
			DatabaseURL: a.cfg.FirebaseDatabaseURL,
			ProjectID:   a.cfg.FirebaseProjectID,
		}, opts...)
		if err != nil {
			return fmt.Errorf("firebase app: %w", err)
		}
		a.fb = fb
		gw, err := gateway.NewFirebase(ctx, fb, a.cfg.FirebasePollInterval, a.log)
		if err != nil {
			return err
		}
		a.gw = gw
	default:
		a.gw = gateway.NewMemory()
	}
	a.log.Info("document store ready", "driver", a.cfg.GatewayDriver)
	return nil
}

func (a *app) openSessions(ctx context.Context) (session.Store, session.Limiter, error) {
	if a.cfg.RedisAddr == "" {
		return session.NewMemoryStore(), session.NewMemoryLimiter(a.cfg.AttemptWindow), nil
	}
	rdb, err := session.Connect(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	a.redis = rdb
	a.log.Info("session store ready", "driver", "redis", "addr", a.cfg.RedisAddr)
	return session.NewRedisStore(rdb), session.NewRedisLimiter(rdb, a.cfg.AttemptWindow), nil
}

func (a *app) router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.Middleware(a.log))
	router.Use(middleware.Recoverer)
	router.Use(a.metrics.Middleware)
	router.Use(session.Middleware(a.auth))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok", "gateway": a.cfg.GatewayDriver})
	})
	router.Handle("/metrics", a.metrics.Handler())

	auth.NewHandler(a.auth).RegisterRoutes(router)
	user.NewHandler(a.users).RegisterRoutes(router)
	shop.NewHandler(a.shops).RegisterRoutes(router)
	catalog.NewHandler(a.catalog).RegisterRoutes(router)
	cart.NewHandler(a.cart).RegisterRoutes(router)
	checkout.NewHandler(a.checkout).RegisterRoutes(router)
	order.NewHandler(a.orders).RegisterRoutes(router)
	notify.NewHandler(a.hub, a.watchers, a.metrics, nil).RegisterRoutes(router)
	return router
}

// Close releases everything newApp opened. Safe on a partly built app.
func (a *app) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.watchers != nil {
		a.watchers.Close()
	}
	if a.gw != nil {
		if err := a.gw.Close(); err != nil {
			a.log.Warn("close document store", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
