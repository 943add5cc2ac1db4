package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/stockroom/internal/repository"
	"go.uber.org/zap"
)

const oprLogRetention = 365 * 24 * time.Hour

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 5m", a.SchedEvictIdleCarts)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", a.SchedClearExpireData)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedEvictIdleCarts drops carts of abandoned sessions
func (a *Application) SchedEvictIdleCarts() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if n := a.carts.EvictIdle(a.appConfig.CartIdleTTL()); n > 0 {
		zap.L().Info("evicted idle carts", zap.Int("count", n))
	}
}

// SchedClearExpireData purges the operation log past its retention
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	n, err := repository.NewGormOprLogRepository(a.gormDB).
		DeleteOlderThan(context.Background(), time.Now().Add(-oprLogRetention))
	if err != nil {
		zap.L().Error("purge operation log failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("purged operation log", zap.Int64("rows", n))
	}
}
