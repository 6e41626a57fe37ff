// Package testutil provides sqlite and miniredis backed dependencies for tests.
package testutil

import (
	"context"
	"testing"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/pkg/database"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory sqlite database with the schema migrated.
// The pool is limited to one connection so a transaction serialises every
// other statement, which makes concurrent tests deterministic.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=off"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(false))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entity.Models()...))
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CreateUser inserts a user with a profile.
func CreateUser(t testing.TB, db *gorm.DB, username, role string) *entity.User {
	t.Helper()

	img := "https://img.example.com/" + username + ".png"
	user := &entity.User{
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		AvatarURL: &img,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)

	profile := &entity.Profile{UserID: user.ID, FullName: username + " full"}
	require.NoError(t, db.Create(profile).Error)
	user.Profile = profile
	return user
}

// CreateProject inserts a project owned by ownerID.
func CreateProject(t testing.TB, db *gorm.DB, ownerID uuid.UUID, title string) *entity.Project {
	t.Helper()

	p := &entity.Project{OwnerID: ownerID, Title: title}
	require.NoError(t, db.Create(p).Error)
	return p
}
