package storefront

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"AlphaStore/internal/admin"
	"AlphaStore/internal/catalog"
	"AlphaStore/internal/currency"
	"AlphaStore/internal/imaging"
	"AlphaStore/internal/session"
	"AlphaStore/internal/translate"
	"AlphaStore/pkg/kit"
)

const service = "storefront"

// App is the assembled storefront: one handler plus the background pieces
// that must be stopped on shutdown.
type App struct {
	Handler http.Handler
	Rates   *currency.RateCache

	log  *zap.Logger
	cron *cron.Cron
	pool *pgxpool.Pool
}

// New wires every component from cfg. With an empty DatabaseURL the catalog
// runs on the in-memory store seeded with demo rows.
func New(ctx context.Context, cfg Config, log *zap.Logger, reg *prometheus.Registry) (*App, error) {
	log = kit.OrNop(log)
	a := &App{log: log}

	var metrics *kit.Metrics
	if reg != nil {
		metrics = kit.NewMetrics(reg)
	}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rateClient := currency.NewAPIClient(cfg.CurrencyURL, cfg.CurrencyKey)
	rateClient.Metrics = metrics
	a.Rates = currency.NewRateCache(rateClient, cfg.RateSeed,
		currency.WithLogger(log.Named("currency")),
		currency.WithMetrics(metrics),
	)

	var backend translate.Backend
	if cfg.TranslateURL != "" {
		tc := translate.NewClient(cfg.TranslateURL, cfg.TranslateKey)
		tc.Metrics = metrics
		backend = tc
	}
	translator := translate.NewAdapter(backend, cfg.DefaultLanguage, log.Named("translate"), metrics)

	host := imaging.NewHostClient(cfg.ImageHostURL, cfg.ImageHostKey)
	host.Metrics = metrics

	credential, err := admin.NewCredential(cfg.AdminPassword)
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions := session.NewManager([]byte(cfg.SessionSecret), cfg.SecureCookies)

	catalogSrv := &catalog.Server{
		Store:           store,
		Pipeline:        catalog.NewPipeline(a.Rates, translator, log.Named("catalog")),
		Sessions:        sessions,
		DefaultLanguage: cfg.DefaultLanguage,
		Log:             log.Named("catalog"),
	}
	adminSrv := &admin.Server{
		Store:      store,
		Images:     imaging.NewIngester(host, log.Named("imaging"), metrics),
		Rates:      a.Rates,
		Sessions:   sessions,
		Tokens:     admin.NewTokenMaker(cfg.JWTSecret),
		Credential: credential,
		Log:        log.Named("admin"),
		TrustProxy: cfg.TrustProxy,
	}

	a.Handler = NewHandler(Deps{Catalog: catalogSrv, Admin: adminSrv}, HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		Metrics:        metrics,
		MetricsEnabled: cfg.MetricsToken != "",
		MetricsToken:   cfg.MetricsToken,
	})

	if cfg.RateWarmSchedule != "" {
		if err := a.startRateWarmer(cfg.RateWarmSchedule); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg Config) (catalog.Store, error) {
	if cfg.DatabaseURL == "" {
		a.log.Warn("DATABASE_URL not set, using in-memory demo catalog")
		return catalog.NewMemStore(catalog.DemoRows()...), nil
	}

	pool, err := catalog.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	return catalog.NewPostgresStore(pool), nil
}

// startRateWarmer refreshes the rate on a schedule so page loads rarely pay
// for the upstream call.
func (a *App) startRateWarmer(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res := a.Rates.Rate(context.Background())
		a.log.Debug("rate warmed",
			zap.String("rate", res.Rate.String()),
			zap.Stringer("freshness", res.Freshness),
		)
	})
	if err != nil {
		return fmt.Errorf("RATE_WARM_SCHEDULE %q: %w", spec, err)
	}

	c.Start()
	a.cron = c
	return nil
}

// Close stops the warmer (waiting for a running job) and closes the pool.
func (a *App) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
