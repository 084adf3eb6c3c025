package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-project/backend/auth"
	"crm-project/backend/config"
	"crm-project/backend/handlers"
	"crm-project/backend/logging"
	"crm-project/backend/mailer"
	"crm-project/backend/memstore"
	"crm-project/backend/permissions"
	"crm-project/backend/repositories"
	"crm-project/backend/scheduler"
	"crm-project/backend/services"
	"crm-project/backend/storage"
	"crm-project/backend/triage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the notification scheduler",
	RunE:  runServe,
}

var (
	serveMemory    bool
	serveLogLevel  string
	serveAdminPass string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep all data in process memory instead of MongoDB")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "logrus level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveAdminPass, "bootstrap-admin", "", "create an \"admin\" account with this password when none exists")
}

type avatarBackend interface {
	services.AvatarStorage
	handlers.AvatarReader
}

// stores groups the persistence the services run on.
type stores struct {
	tasks        services.TaskStore
	projects     services.ProjectStore
	employees    services.EmployeeStore
	associations services.AssociationStore
	profiles     services.ProfileStore
	avatars      avatarBackend
	close        func()
}

func runServe(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(serveLogLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logging.InitLogger("crm", cfg.LogFile, level)
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting CRM service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *stores
	if serveMemory {
		st = memoryStores(cfg)
	} else if st, err = mongoStores(ctx, cfg); err != nil {
		return err
	}
	defer st.close()

	parser := triage.NewParser(triage.DefaultTables())
	if cfg.TriageTables != "" {
		tables, err := triage.LoadTables(cfg.TriageTables)
		if err != nil {
			return err
		}
		parser = triage.NewParser(tables)
		logging.Logger.Infof("Event ID: TRIAGE_TABLES_LOADED, Description: Using triage tables from %s", cfg.TriageTables)
	}

	var inbox services.NotificationStore = services.NewMemoryInbox()
	if cfg.CassandraHost != "" && !serveMemory {
		repo, err := repositories.NewNotificationRepo(cfg.CassandraHost, cfg.CassKeyspace)
		if err != nil {
			return err
		}
		defer repo.CloseSession()
		if err := repo.CreateTable(); err != nil {
			return err
		}
		inbox = repo
	} else {
		logging.Logger.Warn("Event ID: NOTIFICATIONS_IN_MEMORY, Description: CASS_DB not set, notifications are kept in memory")
	}

	var m services.Mailer
	if cfg.FunctionsURL != "" {
		m = mailer.NewFunctionClient(cfg.FunctionsURL, cfg.FunctionsKey, nil)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, 24*time.Hour)
	employeeSvc := services.NewEmployeeService(st.employees, st.avatars, tokens)
	taskSvc := services.NewTaskService(st.tasks, st.projects, st.employees, m, cfg.PublicBaseURL)
	projectSvc := services.NewProjectService(st.projects, st.tasks, st.employees)
	assocSvc := services.NewAssociationService(st.associations, parser)
	profileSvc := services.NewProfileService(st.profiles, st.associations)
	notifySvc := services.NewNotificationService(inbox, st.employees, st.projects)
	dashSvc := services.NewDashboardService(st.tasks, st.projects, st.employees, st.associations)

	if serveAdminPass != "" {
		if err := bootstrapAdmin(ctx, employeeSvc, serveAdminPass); err != nil {
			return err
		}
	}

	sched := scheduler.New(taskSvc, notifySvc, nil,
		scheduler.WithInterval(cfg.NotifyInterval),
		scheduler.WithLookahead(cfg.NotifyLookahead))
	if cfg.NotificationsEnabled {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	router := &handlers.Router{
		Tokens:       tokens,
		Auth:         handlers.NewAuthHandler(employeeSvc),
		Employees:    handlers.NewEmployeeHandler(employeeSvc, st.avatars),
		Tasks:        handlers.NewTaskHandler(taskSvc),
		Projects:     handlers.NewProjectHandler(projectSvc),
		Associations: handlers.NewAssociationHandler(assocSvc),
		Profiles:     handlers.NewProfileHandler(profileSvc, cfg.PublicBaseURL, cfg.SiteOrigin),
		Dashboard:    handlers.NewDashboardHandler(dashSvc, notifySvc),
		CORSOrigin:   cfg.CORSOrigin,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Errorf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
			return err
		}
	case <-ctx.Done():
		logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func memoryStores(cfg *config.Config) *stores {
	logging.Logger.Warn("Event ID: MEMORY_MODE, Description: Running without MongoDB, data is lost on exit")
	return &stores{
		tasks:        &memstore.Tasks{},
		projects:     &memstore.Projects{},
		employees:    &memstore.Employees{},
		associations: &memstore.Associations{},
		profiles:     &memstore.Profiles{},
		avatars:      memstore.NewFiles(cfg.PublicBaseURL),
		close:        func() {},
	}
}

func mongoStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("database connection for MongoDB failed: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB connection ping error: %w", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s", cfg.MongoURI)

	db := client.Database(cfg.MongoDBName)
	employees := repositories.NewEmployeeRepository(db)
	if err := employees.EnsureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	profiles := repositories.NewProfileRepository(db)
	if err := profiles.EnsureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	avatars, err := storage.NewAvatarStore(db, cfg.PublicBaseURL)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return &stores{
		tasks:        repositories.NewTaskRepository(db),
		projects:     repositories.NewProjectRepository(db),
		employees:    employees,
		associations: repositories.NewAssociationRepository(db),
		profiles:     profiles,
		avatars:      avatars,
		close: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logging.Logger.Warnf("Event ID: DB_DISCONNECT_FAILED, Description: %v", err)
			}
		},
	}, nil
}

// bootstrapAdmin creates the "admin" account unless the username is taken.
func bootstrapAdmin(ctx context.Context, employees *services.EmployeeService, password string) error {
	_, err := employees.CreateEmployee(ctx, services.EmployeeInput{
		Name:     "Administrator",
		Username: "admin",
		Email:    "admin@localhost",
		Role:     permissions.Admin,
		Password: password,
	})
	switch {
	case errors.Is(err, services.ErrDuplicate):
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logging.Logger.Info("Event ID: ADMIN_BOOTSTRAPPED, Description: Created the admin account")
	return nil
}
