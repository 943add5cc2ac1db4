package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talkincode/stockroom/internal/auth"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const superUsername = "admin"

// checkSuper makes sure the admin account exists with a usable password and role
func (a *Application) checkSuper() {
	password := a.appConfig.System.AdminPassword

	var user domain.SysUser
	err := a.gormDB.Where("username = ?", superUsername).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, err := auth.HashPassword(password)
		if err != nil {
			zap.L().Error("failed to hash admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.SysUser{
			ID:        common.UUIDint64(),
			Username:  superUsername,
			Password:  hashedPassword,
			Role:      domain.RoleAdmin,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(user.Password) == "" || !isBcryptHash(user.Password)
	resetRole := !strings.EqualFold(user.Role, domain.RoleAdmin)
	if !resetPassword && !resetRole {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hashedPassword, err := auth.HashPassword(password)
		if err != nil {
			zap.L().Error("failed to hash admin password", zap.Error(err))
			return
		}
		updates["password"] = hashedPassword
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}

	if err := a.gormDB.Model(&domain.SysUser{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole))
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// demoProducts is the catalog loaded by SeedDemoData
var demoProducts = []struct {
	Article  string
	Name     string
	Quantity int
}{
	{"RF-1001", "Refrigerator two-chamber 300 l", 15},
	{"WM-2001", "Washing machine front load 7 kg", 22},
	{"ST-3001", "Electric stove four burners", 11},
	{"MW-4001", "Microwave oven 20 l", 28},
	{"VC-5001", "Vacuum cleaner bagless", 20},
	{"KT-6001", "Electric kettle 1.7 l", 35},
	{"CF-7001", "Coffee machine espresso", 5},
	{"IR-8001", "Steam iron 2400 W", 27},
	{"AC-9001", "Air conditioner split system", 6},
	{"DW-0010", "Dishwasher built-in 45 cm", 9},
}

// SeedDemoData creates the admin account and the demo catalog. Products that
// already exist are left untouched.
func (a *Application) SeedDemoData(ctx context.Context) {
	a.checkSuper()
	a.checkProducts(ctx)
}

// checkProducts initializes the demo catalog
func (a *Application) checkProducts(ctx context.Context) {
	for _, p := range demoProducts {
		var count int64
		a.gormDB.WithContext(ctx).Model(&domain.Product{}).Where("article = ?", p.Article).Count(&count)
		if count > 0 {
			continue
		}
		if _, _, err := a.catalog.AddOrRestock(ctx, p.Article, p.Name, p.Quantity); err != nil {
			zap.L().Error("failed to create demo product", zap.String("article", p.Article), zap.Error(err))
		} else {
			zap.L().Info("initialized demo product", zap.String("article", p.Article))
		}
	}
}
