package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/model"
	logger "github.com/Gopher0727/occult/middleware/log"
)

func TestBuildDSN(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "chat"}

	t.Run("postgres", func(t *testing.T) {
		cfg := base
		cfg.Driver = "postgres"
		assert.Equal(t, "host=db port=5432 user=u password=p dbname=chat sslmode=disable TimeZone=UTC", BuildDSN(&cfg))
	})

	t.Run("mysql", func(t *testing.T) {
		cfg := base
		cfg.Driver = "mysql"
		cfg.Port = 3306
		dsn := BuildDSN(&cfg)
		assert.Equal(t, "u:p@tcp(db:3306)/chat?charset=utf8mb4&parseTime=true&loc=UTC", dsn)
		// found-rows counting would report ignored duplicates as inserted
		assert.NotContains(t, dsn, "clientFoundRows")
	})

	t.Run("explicit dsn wins", func(t *testing.T) {
		cfg := base
		cfg.Driver = "sqlite"
		cfg.DSN = ":memory:"
		assert.Equal(t, ":memory:", BuildDSN(&cfg))
	})
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, logger.NewNop())
	assert.Error(t, err)
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 10, LogLevel: "silent"}

	db, err := Open(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))

	for _, table := range []any{
		&model.User{}, &model.Server{}, &model.ServerMember{}, &model.Channel{},
		&model.Message{}, &model.Attachment{}, &model.Reaction{}, &model.Mention{}, &model.Invite{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&model.Message{}, "idx_messages_channel_order"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestSQLiteTranslatesDuplicateKey(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}
	db, err := Open(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db))

	now := model.SystemClock{}.Now()
	user := func(email string) *model.User {
		return &model.User{ID: model.NewID(), Username: "dup", Email: email, Status: model.StatusOffline, CreatedAt: now, UpdatedAt: now}
	}
	require.NoError(t, db.Create(user("a@example.com")).Error)

	err = db.Create(user("b@example.com")).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// other failures pass through untouched
	err = db.Where("id = ?", model.NewID()).First(&model.User{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
