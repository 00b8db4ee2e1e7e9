package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dstotijn/go-notion"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/await"
	"github.com/sokdak/raid-bot/pkg/cache"
	"github.com/sokdak/raid-bot/pkg/calendar"
	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/coordinator"
	"github.com/sokdak/raid-bot/pkg/delivery"
	"github.com/sokdak/raid-bot/pkg/discord"
	"github.com/sokdak/raid-bot/pkg/environment"
	"github.com/sokdak/raid-bot/pkg/handler"
	"github.com/sokdak/raid-bot/pkg/keylock"
	"github.com/sokdak/raid-bot/pkg/ledger"
	"github.com/sokdak/raid-bot/pkg/metrics"
	"github.com/sokdak/raid-bot/pkg/paginate"
	"github.com/sokdak/raid-bot/pkg/render"
	"github.com/sokdak/raid-bot/pkg/roster"
	"github.com/sokdak/raid-bot/pkg/scheduler"
	"github.com/sokdak/raid-bot/pkg/store"
	"github.com/sokdak/raid-bot/pkg/timezone"
)

func main() {
	log := logrus.WithField("component", "main")

	cfg, err := environment.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	logrus.SetLevel(cfg.Level())
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	st, err := store.Open(cfg.RaidSQLiteDBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open raid database")
	}
	defer st.Close()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load class catalog")
	}
	tz, err := timezone.New(cfg.DefaultZone)
	if err != nil {
		log.WithError(err).Fatal("failed to load default time zone")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dg, err := discordgo.New("Bot " + cfg.DiscordAPIKey)
	if err != nil {
		log.WithError(err).Fatal("failed to create discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	var cal delivery.CalendarUpdater = delivery.NopCalendar{}
	if cfg.CalendarEnabled() {
		cal = calendar.NewNotion(notion.NewClient(cfg.NotionBotAPIKey), st, cfg.NotionCalendarDBID)
	}

	posts := discord.NewPosts(dg)
	executor := delivery.NewExecutor(posts, posts, cal, m)
	locks := keylock.New()

	coord := coordinator.New(st, locks,
		ledger.New(cat),
		roster.New(cat),
		render.NewBuilder(cat, paginate.New(cfg.PageSize, cfg.Ceiling), tz),
		tz,
		coordinator.WithExecutor(executor),
		coordinator.WithMetrics(m),
		coordinator.WithLeaderRole(cfg.RaidLeaderRole),
	)

	roles := cache.NewRoles(dg)
	raids := handler.NewRaid(coord, cat, roles, await.New(), cfg.ReplyTimeout)
	raids.RaidInit(ctx, dg)
	defer raids.RaidFinalize()

	if err := dg.Open(); err != nil {
		log.WithError(err).Error("error opening connection")
		return
	}
	defer dg.Close()

	// Run cache eviction policy
	roles.RunEvictionPolicy(ctx, 10*time.Minute)

	if err := raids.RegisterRaidCommands(dg, cfg.RegisterGuildID); err != nil {
		log.WithError(err).Error("error registering raid commands")
		return
	}
	defer raids.UnregisterCommands(dg, cfg.RegisterGuildID)

	sweeper := scheduler.New(st, locks, posts, executor, m, scheduler.Config{
		Interval:     cfg.SweepInterval,
		Lookahead:    cfg.Lookahead,
		Retention:    cfg.Retention,
		NotifyWindow: cfg.NotifyWindow,
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.WithField("started_at", time.Now().Format(time.RFC3339)).Info("bot is now running, press CTRL+C to exit")

	select {
	case <-ctx.Done():
		log.Info("received context cancellation, shutting down gracefully")
	case <-sigCh:
		log.Info("received OS signal, shutting down gracefully")
	}
}
