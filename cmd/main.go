package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	cancelBookingHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/cancel_booking"
	createBookingHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/create_booking"
	deleteBookingHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/delete_booking"
	getAvailableSlotsHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/get_booking"
	getBookingPolicyHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/get_booking_policy"
	getPatientBookingsHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/get_patient_bookings"
	getProviderBookingsHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/get_provider_bookings"
	listServicesHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/list_services"
	rescheduleBookingHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/reschedule_booking"
	updateBookingPolicyHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/update_booking_policy"
	updateBookingStatusHandler "github.com/m04kA/SMC-ClinicBooking/internal/api/handlers/update_booking_status"
	"github.com/m04kA/SMC-ClinicBooking/internal/api/middleware"
	"github.com/m04kA/SMC-ClinicBooking/internal/config"
	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
	"github.com/m04kA/SMC-ClinicBooking/internal/infra/events"
	"github.com/m04kA/SMC-ClinicBooking/internal/infra/locker"
	bookingRepo "github.com/m04kA/SMC-ClinicBooking/internal/infra/storage/booking"
	policyRepo "github.com/m04kA/SMC-ClinicBooking/internal/infra/storage/policy"
	userServiceClient "github.com/m04kA/SMC-ClinicBooking/internal/integrations/userservice"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/allocator"
	bookingsService "github.com/m04kA/SMC-ClinicBooking/internal/service/bookings"
	policyService "github.com/m04kA/SMC-ClinicBooking/internal/service/policy"
	"github.com/m04kA/SMC-ClinicBooking/internal/service/schedule"
	createBookingUC "github.com/m04kA/SMC-ClinicBooking/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-ClinicBooking/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-ClinicBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicBooking/pkg/logger"
	"github.com/m04kA/SMC-ClinicBooking/pkg/metrics"
	"github.com/m04kA/SMC-ClinicBooking/pkg/txmanager"
)

// eventPublisher публикатор событий, который нужно закрыть при остановке
type eventPublisher interface {
	Publish(ctx context.Context, key string, v interface{}) error
	Close() error
}

// bookingLocker блокировка расписания врача
type bookingLocker interface {
	Lock(ctx context.Context, key string) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

func main() {
	configPath := "config.toml"
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		configPath = path
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ClinicBooking...")
	log.Info("Configuration loaded from %s", configPath)

	// Метрики (nil, если выключены: все методы безопасны для nil)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Каталоги и календарь клиники
	slotCatalog, err := cfg.SlotCatalog()
	if err != nil {
		log.Fatal("Invalid clinic hours: %v", err)
	}
	serviceCatalog, err := cfg.ServiceCatalog()
	if err != nil {
		log.Fatal("Invalid service catalog: %v", err)
	}
	location, err := cfg.Clinic.Location()
	if err != nil {
		log.Fatal("Invalid clinic timezone: %v", err)
	}
	weekdays, err := cfg.Clinic.Weekdays()
	if err != nil {
		log.Fatal("Invalid clinic working days: %v", err)
	}
	calendar := schedule.NewCalendar(location, weekdays)
	log.Info("Clinic schedule: %s-%s (%d slots), %d services, timezone=%s",
		cfg.Clinic.OpenTime, cfg.Clinic.CloseTime, slotCatalog.Len(), len(serviceCatalog.All()), location)

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	var wrappedDB *dbmetrics.DB
	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db, nil)
	}
	txMgr := txmanager.NewTransactionManager(wrappedDB, metricsCollector)

	// Репозитории: по одной таблице на источник
	walkInRepository, err := bookingRepo.NewRepository(wrappedDB, domain.SourceWalkIn)
	if err != nil {
		log.Fatal("Failed to init walk-in repository: %v", err)
	}
	onlineRepository, err := bookingRepo.NewRepository(wrappedDB, domain.SourceOnlineRequest)
	if err != nil {
		log.Fatal("Failed to init online request repository: %v", err)
	}
	policyRepository := policyRepo.NewRepository(wrappedDB)

	// Интеграционные клиенты
	userClient := userServiceClient.NewClient(
		cfg.UserService.URL,
		time.Duration(cfg.UserService.Timeout)*time.Second,
		log,
	)
	log.Info("UserService client initialized (url=%s, timeout=%ds)", cfg.UserService.URL, cfg.UserService.Timeout)

	// Блокировка расписания в Redis (опционально)
	var scheduleLocker bookingLocker = locker.NoopLocker{}
	var redisClient *redis.Client
	if cfg.Locker.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			// Блокировка только снижает число повторов транзакций, работаем и без Redis
			log.Warn("Redis is unavailable at %s, locks will be skipped until it recovers: %v", cfg.Redis.Addr, err)
		}
		scheduleLocker = locker.NewRedisLocker(redisClient, locker.Config{
			TTL:         time.Duration(cfg.Locker.TTLMs) * time.Millisecond,
			WaitTimeout: time.Duration(cfg.Locker.WaitTimeoutMs) * time.Millisecond,
		}, log)
		log.Info("Schedule locker enabled (redis=%s, ttl=%dms)", cfg.Redis.Addr, cfg.Locker.TTLMs)
	}

	// События для нотификатора (опционально)
	var publisher eventPublisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		amqpPublisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ: %v", err)
		}
		publisher = amqpPublisher
		log.Info("Event publisher connected (exchange=%s)", cfg.Events.Exchange)
	}

	// Сервисы
	slotAllocator := allocator.New(
		walkInRepository,
		onlineRepository,
		slotCatalog,
		allocator.Options{
			FailOpen:    cfg.Slots.FailOpen,
			OnlineScope: allocator.OnlineScope(cfg.Slots.OnlineScope),
		},
		metricsCollector,
		log,
	)
	log.Info("Slot allocator: fail_open=%t, online_scope=%s", cfg.Slots.FailOpen, cfg.Slots.OnlineScope)

	policySvc := policyService.NewService(
		policyRepository,
		userClient,
		txMgr,
		log,
	)
	bookingSvc := bookingsService.NewService(
		walkInRepository,
		onlineRepository,
		slotAllocator,
		policySvc,
		calendar,
		userClient,
		publisher,
		metricsCollector,
		txMgr,
		log,
	)

	// Use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		walkInRepository,
		onlineRepository,
		slotAllocator,
		policySvc,
		serviceCatalog,
		calendar,
		userClient,
		scheduleLocker,
		publisher,
		metricsCollector,
		txMgr,
		log,
	)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		slotAllocator,
		policySvc,
		serviceCatalog,
		calendar,
		log,
	)

	// Handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)
	updateBookingStatus := updateBookingStatusHandler.NewHandler(bookingSvc, log)
	rescheduleBooking := rescheduleBookingHandler.NewHandler(bookingSvc, log)
	deleteBooking := deleteBookingHandler.NewHandler(bookingSvc, log)
	getPatientBookings := getPatientBookingsHandler.NewHandler(bookingSvc, log)
	getProviderBookings := getProviderBookingsHandler.NewHandler(bookingSvc, log)
	getBookingPolicy := getBookingPolicyHandler.NewHandler(policySvc, log)
	updateBookingPolicy := updateBookingPolicyHandler.NewHandler(policySvc, log)
	listServices := listServicesHandler.NewHandler(serviceCatalog)

	// Настраиваем роутер
	r := mux.NewRouter()

	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	api.HandleFunc("/providers/{providerId}/available-slots", getAvailableSlots.Handle).Methods(http.MethodGet)
	api.HandleFunc("/providers/{providerId}/policy", getBookingPolicy.Handle).Methods(http.MethodGet)
	api.HandleFunc("/services", listServices.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Бронирования ---
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{source}/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{source}/{bookingId}", deleteBooking.Handle).Methods(http.MethodDelete)
	protected.HandleFunc("/bookings/{source}/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/bookings/{source}/{bookingId}/status", updateBookingStatus.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/bookings/{source}/{bookingId}/reschedule", rescheduleBooking.Handle).Methods(http.MethodPatch)

	// --- История пациента и расписание врача ---
	protected.HandleFunc("/patients/{patientId}/bookings", getPatientBookings.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/providers/{providerId}/bookings", getProviderBookings.Handle).Methods(http.MethodGet)

	// --- Политика записи (администратор) ---
	protected.HandleFunc("/policies", updateBookingPolicy.Handle).Methods(http.MethodPut)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	if err := publisher.Close(); err != nil {
		log.Warn("Failed to close event publisher: %v", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Failed to close redis client: %v", err)
		}
	}

	log.Info("Server exited")
}
