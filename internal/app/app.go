package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/auth"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/internal/events"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/repository"
	"github.com/talkincode/stockroom/pkg/common"
	"github.com/talkincode/stockroom/pkg/idempotency"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron

	catalog     *inventory.Catalog
	carts       *inventory.Carts
	orders      *inventory.OrderStore
	checkout    *inventory.CheckoutWorkflow
	authService *auth.Service
	publisher   events.Publisher
	idempotency idempotency.Store
	rdb         *redis.Client
}

// Ensure Application implements all interfaces
var (
	_ DBProvider          = (*Application)(nil)
	_ ConfigProvider      = (*Application)(nil)
	_ SchedulerProvider   = (*Application)(nil)
	_ InventoryProvider   = (*Application)(nil)
	_ AuthProvider        = (*Application)(nil)
	_ IdempotencyProvider = (*Application)(nil)
	_ OprLogProvider      = (*Application)(nil)
	_ AppContext          = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle and rebuilds the
// services on top of it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.initServices()
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	common.SetNodeID(cfg.System.NodeID)

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	// Ensure database schema is migrated before seeding
	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.initServices()
	a.checkSuper()
	a.initJob()
}

// initServices wires the domain services over the current database handle
func (a *Application) initServices() {
	cfg := a.appConfig

	if a.publisher == nil {
		if cfg.Kafka.Enabled {
			a.publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			zap.L().Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		} else {
			a.publisher = events.NopPublisher{}
		}
	}

	if a.idempotency == nil {
		if cfg.Redis.Enabled {
			a.rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			a.idempotency = idempotency.NewRedisStore(a.rdb)
		} else {
			a.idempotency = idempotency.NewMemoryStore()
		}
	}

	a.catalog = inventory.NewCatalog(a.gormDB, cfg.Web.PageSize)
	a.carts = inventory.NewCarts(a.catalog)
	a.catalog.OnDelete(a.carts.RemoveProduct)
	a.orders = inventory.NewOrderStore(a.gormDB, cfg.Web.PageSize)
	a.checkout = inventory.NewCheckoutWorkflow(a.gormDB, a.orders, a.publisher)
	a.authService = auth.NewService(a.gormDB)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb drops and recreates every table, then restores the admin account
func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
		return
	}
	a.checkSuper()
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Catalog() *inventory.Catalog {
	return a.catalog
}

func (a *Application) Carts() *inventory.Carts {
	return a.carts
}

func (a *Application) Orders() *inventory.OrderStore {
	return a.orders
}

func (a *Application) Checkout() *inventory.CheckoutWorkflow {
	return a.checkout
}

func (a *Application) Auth() *auth.Service {
	return a.authService
}

// AccountExists lets the login gate reject sessions of deleted accounts
func (a *Application) AccountExists(ctx context.Context, id int64) (bool, error) {
	return a.authService.Exists(ctx, id)
}

func (a *Application) Idempotency() idempotency.Store {
	return a.idempotency
}

// LogOperation appends an entry to the operator audit trail
func (a *Application) LogOperation(ctx context.Context, operator, ip, action, desc string) {
	err := repository.NewGormOprLogRepository(a.gormDB).Create(ctx, &domain.SysOprLog{
		OprName:   operator,
		OprIp:     ip,
		OptAction: action,
		OptDesc:   desc,
	})
	if err != nil {
		zap.L().Warn("write operation log failed", zap.String("action", action), zap.Error(err))
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			zap.L().Warn("close event publisher", zap.Error(err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = zap.L().Sync()
}
