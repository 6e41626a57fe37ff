package database_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"anoa.com/mentorconnect/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), database.GormConfig(false))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func count(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithinTransaction_CommitRunsHooks(t *testing.T) {
	db := openDB(t)
	tx := database.NewTransactor(db)
	ctx := context.Background()

	var fired []string
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		assert.True(t, database.InTransaction(ctx))
		if err := database.Conn(ctx, db).Create(&widget{Name: "a"}).Error; err != nil {
			return err
		}
		database.AfterCommit(ctx, func() {
			// the committed transaction is no longer handed out
			assert.False(t, database.InTransaction(ctx))
			var n int64
			assert.NoError(t, database.Conn(ctx, db).Model(&widget{}).Count(&n).Error)
			fired = append(fired, "outer")
		})

		// nested call joins the same transaction
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			database.AfterCommit(ctx, func() { fired = append(fired, "inner") })
			return database.Conn(ctx, db).Create(&widget{Name: "b"}).Error
		})
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), count(t, db))
	assert.Equal(t, []string{"outer", "inner"}, fired)
}

func TestWithinTransaction_RollbackDropsHooks(t *testing.T) {
	db := openDB(t)
	tx := database.NewTransactor(db)
	boom := errors.New("boom")

	fired := false
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, database.Conn(ctx, db).Create(&widget{Name: "a"}).Error)
		database.AfterCommit(ctx, func() { fired = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, fired)
	assert.Equal(t, int64(0), count(t, db))
}

func TestAfterCommit_NoTransactionRunsImmediately(t *testing.T) {
	fired := false
	database.AfterCommit(context.Background(), func() { fired = true })
	assert.True(t, fired)
	assert.False(t, database.InTransaction(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Create(&widget{Name: "dup"}).Error)

	err := db.Create(&widget{Name: "dup"}).Error
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.False(t, database.IsUniqueViolation(errors.New("other")))
	assert.False(t, database.IsUniqueViolation(nil))
}

func TestGormLogger_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	db := openDB(t).Session(&gorm.Session{Logger: database.NewGormLogger(&buf, false)})

	var w widget
	err := db.Where("name = ?", "missing").First(&w).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	err = db.Table("no_such_table").First(&w).Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
}
