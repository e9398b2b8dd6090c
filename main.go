package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/kvanc/server/internal/client"
	"github.com/kvanc/server/internal/controller"
	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/repository"
	"github.com/kvanc/server/internal/service"
	"github.com/kvanc/server/internal/watch"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const shutdownWait = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile      string
		port         int
		questionFile string
	)

	rootCmd := &cobra.Command{
		Use:          "kvanc",
		Short:        "Live audience voting server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := dto.LoadConfig(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("question-file") {
				cfg.QuestionPath, cfg.QuestionFile = filepath.Split(questionFile)
				if cfg.QuestionPath == "" {
					cfg.QuestionPath = "."
				}
			}
			if err := configureLogging(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before the environment")
	rootCmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port")
	rootCmd.Flags().StringVar(&questionFile, "question-file", "", "question file to watch")
	return rootCmd
}

func configureLogging(cfg dto.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", dto.ErrValidation, err)
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func openArchive(cfg dto.Config) *gorm.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		logrus.Panic(err)
	}
	logrus.Info("Archiving results to database")
	return db
}

func run(ctx context.Context, cfg dto.Config) error {
	repositories := repository.NewRepositories(openArchive(cfg))
	clients := client.NewClients(cfg)
	services := service.NewServices(repositories, clients, service.DefaultHubConfig())
	controllers := controller.NewControllers(services, cfg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	controllers.Route(e)

	source := watch.NewFileSource(cfg.QuestionFilePath(), cfg.LoadQuestionOnStart)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		address := ":" + strconv.Itoa(cfg.Port)
		logrus.Infof("Listening on %s", address)
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return services.Session().Watch(ctx, source, cfg.PollInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		err := e.Shutdown(shutdownCtx)

		services.Close()
		clients.Close()
		return err
	})

	return g.Wait()
}
