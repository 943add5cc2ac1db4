package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/auth"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/pkg/idempotency"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// InventoryProvider provides the catalog, carts, orders and checkout workflow
type InventoryProvider interface {
	Catalog() *inventory.Catalog
	Carts() *inventory.Carts
	Orders() *inventory.OrderStore
	Checkout() *inventory.CheckoutWorkflow
}

// AuthProvider provides operator account management
type AuthProvider interface {
	Auth() *auth.Service
}

// IdempotencyProvider provides the duplicate submission guard
type IdempotencyProvider interface {
	Idempotency() idempotency.Store
}

// OprLogProvider records operator actions
type OprLogProvider interface {
	LogOperation(ctx context.Context, operator, ip, action, desc string)
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	InventoryProvider
	AuthProvider
	IdempotencyProvider
	OprLogProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
