package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/notes-bin/gallery/internal/model"
)

// SQLRepository stores records in the single "images" table.
type SQLRepository struct {
	db *gorm.DB
}

// OpenSQL connects with the given driver (sqlite, mysql or postgres) and
// migrates the images table.
func OpenSQL(driver, dsn string) (*SQLRepository, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite" {
		// SQLite 单写者
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&model.Image{}); err != nil {
		return nil, fmt.Errorf("migrate images table: %w", err)
	}
	slog.Info("Connected to database", "driver", driver)
	return &SQLRepository{db: db}, nil
}

func (r *SQLRepository) Insert(ctx context.Context, img *model.Image) (*model.Image, error) {
	stored := *img
	stored.ID = 0
	if err := r.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]model.Image, error) {
	images := []model.Image{}
	err := r.db.WithContext(ctx).
		Order("uploaded_at DESC").
		Order("id DESC").
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*model.Image, error) {
	var img model.Image
	err := r.db.WithContext(ctx).First(&img, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Delete relies on the affected row count, so of two racing deletes only
// one reports success.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Image{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	slog.Info("Closing database connection")
	return sqlDB.Close()
}
