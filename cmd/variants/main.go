package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/variantsgg/variants/internal/bot"
	"github.com/variantsgg/variants/internal/clock"
	"github.com/variantsgg/variants/internal/config"
	"github.com/variantsgg/variants/internal/db/sqlite"
	"github.com/variantsgg/variants/internal/facts"
	"github.com/variantsgg/variants/internal/game"
	"github.com/variantsgg/variants/internal/handlers"
	"github.com/variantsgg/variants/internal/infra"
	"github.com/variantsgg/variants/internal/lifecycle"
	"github.com/variantsgg/variants/internal/observability"
	"github.com/variantsgg/variants/internal/questions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.VgFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := observability.Init(ctx); err != nil {
		log.WithError(err).Fatalln("cant initialize observability")
	}

	infra.GoRecoverable(5, "main", func() {
		run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg config.Config) {
	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()

	store, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "variants.db")
	if err != nil {
		log.WithError(err).Fatalln("cant open database")
	}
	defer store.Close()

	service := bot.NewService(botAPI, store)
	messenger := handlers.NewTelegramMessenger(service, cfg.BotUsername)
	rng := rand.NewSource(time.Now().UnixNano())

	manager := game.NewManager(
		cfg.Game,
		store,
		messenger,
		questions.New(cfg.LLM),
		facts.New(cfg.Facts, rand.New(rand.NewSource(time.Now().UnixNano()))),
		clock.System(),
		rng,
	)

	runtime := lifecycle.NewRuntime(
		observability.NewServer(cfg.MetricsAddr),
		manager,
	)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start components")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop components")
		}
	}()

	bot.RegisterUpdateHandler("variants", handlers.NewVariants(service, manager))

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updateConfig.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}
	updateProcessor := bot.NewUpdateProcessor(service)

	updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

	// Updates from different chats process concurrently; the manager
	// serializes everything touching one chat on that chat's lock.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(16)

	for {
		select {
		case err := <-errorChan:
			log.WithError(err).Fatalln("bot api get updates error")
		case update := <-updateChan:
			group.Go(func() error {
				if err := updateProcessor.Process(groupCtx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
				return nil
			})
		case <-ctx.Done():
			log.Infoln("no more updates")
			_ = group.Wait()
			return
		}
	}
}
