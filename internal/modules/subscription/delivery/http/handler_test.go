package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	connDto "anoa.com/mentorconnect/internal/modules/connection/dto"
	connRepo "anoa.com/mentorconnect/internal/modules/connection/repository"
	connService "anoa.com/mentorconnect/internal/modules/connection/service"
	notifRepo "anoa.com/mentorconnect/internal/modules/notification/repository"
	notifService "anoa.com/mentorconnect/internal/modules/notification/service"
	projectRepo "anoa.com/mentorconnect/internal/modules/project/repository"
	subscription "anoa.com/mentorconnect/internal/modules/subscription/service"
	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/internal/realtime"
	"anoa.com/mentorconnect/internal/testutil"
	"anoa.com/mentorconnect/pkg/database"
	"anoa.com/mentorconnect/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type liveEnv struct {
	db          *gorm.DB
	hub         *subscription.Hub
	connections connService.ConnectionService
	server      *httptest.Server
}

func newLiveEnv(t *testing.T) *liveEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	log := zaptest.NewLogger(t)
	tx := database.NewTransactor(db)
	pub := realtime.NewPublisher(rdb, log)

	requests := connRepo.NewConnectionRepository(db)
	users := userRepo.NewUserRepository(db)
	notifications := notifService.NewNotificationService(
		notifRepo.NewNotificationRepository(db, 0),
		requests, users, projectRepo.NewProjectRepository(db),
		pub, tx, log, notifService.Options{},
	)
	connections := connService.NewConnectionService(requests, users, notifications, pub, tx, nil, log, connService.Options{})

	hub := subscription.NewHub(connections, notifications, realtime.NewSubscriber(rdb, log), log, subscription.HubOptions{})
	t.Cleanup(hub.Shutdown)

	h := NewLiveHandler(hub, nil, log)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(response.ContextUserIDKey, id)
		}
		c.Next()
	})
	router.GET("/api/live", h.GetSnapshot)
	router.GET("/api/live/ws", h.Stream)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &liveEnv{db: db, hub: hub, connections: connections, server: srv}
}

func TestGetSnapshot(t *testing.T) {
	env := newLiveEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice", entity.RoleLearner)
	bob := testutil.CreateUser(t, env.db, "bob", entity.RoleMentor)

	_, err := env.connections.SendRequest(context.Background(), alice.ID, connDto.SendRequestInput{ToUserID: bob.ID})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/live", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", bob.ID.String())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data subscription.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data.IncomingRequests.Data, 1)
	assert.Equal(t, alice.ID, body.Data.IncomingRequests.Data[0].FromID)
	require.Len(t, body.Data.Notifications.Data, 1)
	assert.Equal(t, entity.NotificationTypeConnection, body.Data.Notifications.Data[0].Type)

	assert.Zero(t, env.hub.Active(), "one-shot reads release their session")
}

func TestGetSnapshot_Unauthenticated(t *testing.T) {
	env := newLiveEnv(t)
	resp, err := http.Get(env.server.URL + "/api/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_PushesChanges(t *testing.T) {
	env := newLiveEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice", entity.RoleLearner)
	bob := testutil.CreateUser(t, env.db, "bob", entity.RoleMentor)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/live/ws"
	header := http.Header{}
	header.Set("X-User-ID", bob.ID.String())
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	read := func() subscription.Snapshot {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var snap subscription.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		return snap
	}

	first := read()
	assert.Empty(t, first.IncomingRequests.Data)
	assert.False(t, first.IncomingRequests.Loading)
	assert.Equal(t, 1, env.hub.Active())

	_, err = env.connections.SendRequest(context.Background(), alice.ID, connDto.SendRequestInput{ToUserID: bob.ID})
	require.NoError(t, err)

	// the request and its notification arrive as separate events
	for i := 0; i < 5; i++ {
		snap := read()
		if len(snap.IncomingRequests.Data) == 1 && len(snap.Notifications.Data) == 1 {
			assert.Equal(t, alice.ID, snap.IncomingRequests.Data[0].FromID)
			return
		}
	}
	t.Fatal("snapshot with the new request never arrived")
}
