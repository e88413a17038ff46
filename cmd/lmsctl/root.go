package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lms-platform/internal/config"
	"github.com/magabrotheeeer/lms-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-platform/internal/lib/sl"
	"github.com/magabrotheeeer/lms-platform/internal/storage"
)

// env ресурсы, которые команды открывают по мере надобности.
type env struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
	db         *storage.Storage
	conn       *amqp.Connection
	ch         *amqp.Channel
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "lmsctl",
		Short:         "Operator tool for the LMS platform",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return e.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the YAML config")

	root.AddCommand(
		newMigrateCmd(e),
		newPromoteCmd(e),
		newUnblockCmd(e),
		newSweepCmd(e),
		newRescanCmd(e),
	)
	return root
}

func (e *env) loadConfig() error {
	if e.configPath == "" {
		return fmt.Errorf("config path is not set: use --config or CONFIG_PATH")
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = sl.New(cfg.Env, os.Stderr)
	return nil
}

func (e *env) storage() (*storage.Storage, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := storage.New(e.cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}

func (e *env) publisher() (*rabbitmq.Publisher, error) {
	if e.ch == nil {
		conn, err := rabbitmq.Connect(e.cfg.RabbitMQURL, e.cfg.RabbitMQMaxRetries, e.cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		e.conn, e.ch = conn, ch
	}
	return rabbitmq.NewPublisher(e.ch), nil
}

func (e *env) close() {
	if e.ch != nil {
		_ = e.ch.Close()
	}
	if e.conn != nil {
		_ = e.conn.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
