package main

import (
	"context"

	"github.com/rpattn/gradtrack/internal/config"
	"github.com/rpattn/gradtrack/internal/db"
	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/importer"
	"github.com/rpattn/gradtrack/internal/repository"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "gradtrack",
		Short:        "Graduation project bulk import service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", ".", "Directory holding config.yaml and .env")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newImportCmd(opts),
		newTemplateCmd(),
	)
	return cmd
}

// app is the wiring shared by the commands that touch the database.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	conn    *db.Connection
	service *importer.Service
}

func loadConfig(opts *rootOptions) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := cfg.Log.NewLogger()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func newApp(ctx context.Context, opts *rootOptions, reg prometheus.Registerer) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	repos := repository.NewPostgresRepositories(conn.Pool)

	// Roles are resolved once; a missing base role is a deployment error.
	storedRoles, err := repos.Catalog.ListRoles(ctx)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to load roles")
	}
	roles := domain.NewRoleTable(storedRoles)
	if err := roles.Require(domain.RoleStudent, domain.RoleAdvisor); err != nil {
		conn.Close()
		return nil, errors.Wrap(importer.ErrConfiguration, err.Error())
	}
	log.WithField("roles", roles.Len()).Info("resolved role table")

	serviceOpts := []importer.Option{
		importer.WithLogger(log),
		importer.WithDefaults(importer.Defaults{
			DocumentType:           cfg.Import.DefaultDocumentType,
			Faculty:                cfg.Import.DefaultFaculty,
			AcademicLevel:          cfg.Import.DefaultAcademicLevel,
			PlaceholderEmailDomain: cfg.Import.PlaceholderEmailDomain,
			PreviewLimit:           cfg.Import.PreviewLimit,
		}),
	}
	if reg != nil {
		serviceOpts = append(serviceOpts, importer.WithMetrics(importer.NewMetrics(reg)))
	}

	service, err := importer.NewService(repos, roles, serviceOpts...)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, conn: conn, service: service}, nil
}

func (a *app) Close() {
	a.conn.Close()
}
