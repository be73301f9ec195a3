package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"task-market/backend/internal/config"
	"task-market/backend/internal/database"
	"task-market/backend/internal/handlers"
	"task-market/backend/internal/middleware"
	"task-market/backend/internal/models"
	"task-market/backend/internal/notify"
	"task-market/backend/internal/services"
	"task-market/backend/internal/storage"
	"task-market/backend/internal/worker"
)

func TestApplicationStartup(t *testing.T) {
	os.Setenv("ENVIRONMENT", "development")
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("REDIS_HOST", "localhost")
	defer func() {
		os.Unsetenv("ENVIRONMENT")
		os.Unsetenv("DB_HOST")
		os.Unsetenv("REDIS_HOST")
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg == nil {
		t.Fatal("Configuration should not be nil")
	}
}

// MarketplaceIntegrationTestSuite drives the whole stack over HTTP: gin
// routing, JWT auth, the task service on sqlite, and notification delivery
// through the redis-backed worker.
type MarketplaceIntegrationTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	worker *worker.Worker

	ownerID    uuid.UUID
	adminID    uuid.UUID
	categoryID uuid.UUID
	tagID      uuid.UUID
}

func (suite *MarketplaceIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		DSN:          "file:integration?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(pool.Migrate())
	suite.db = pool.DB

	mr, err := miniredis.Run()
	suite.Require().NoError(err)
	suite.T().Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	suite.worker = worker.New(worker.Config{
		RedisClient: redisClient,
		Logger:      log,
		Queues:      []string{notify.DefaultQueue, "retry_queue"},
	})
	suite.worker.RegisterHandler(worker.JobTypeNotification, notify.NewDeliveryHandler(suite.db))
	suite.worker.Start(1)

	notifier := notify.NewQueueNotifier(redisClient, notify.DefaultQueue)
	files := storage.NewDiskStorage(suite.T().TempDir(), "/uploads/", log)
	taskService := services.NewTaskService(notifier, files, log)

	taskHandler := handlers.NewTaskHandler(suite.db, taskService)
	notificationHandler := handlers.NewNotificationHandler(suite.db)

	router := gin.New()
	api := router.Group("/api/v1")
	public := api.Group("/", middleware.AuthzMiddleware(middleware.AuthzConfig{Optional: true}))
	public.GET("/tasks", taskHandler.GetTasks)
	public.GET("/tasks/:id", taskHandler.GetTaskByID)

	authed := api.Group("/", middleware.AuthzMiddleware(middleware.AuthzConfig{}))
	authed.POST("/tasks", taskHandler.CreateTask)
	authed.PATCH("/tasks/:id", taskHandler.UpdateTask)
	authed.GET("/notifications", notificationHandler.GetNotifications)

	admin := api.Group("/admin", middleware.AuthzMiddleware(middleware.AuthzConfig{Role: "admin"}))
	admin.GET("/tasks/pending", taskHandler.GetPendingTasks)
	admin.GET("/tasks/pending/count", taskHandler.GetPendingCount)
	admin.POST("/tasks/:id/moderate", taskHandler.ModerateTask)

	suite.router = router

	suite.ownerID = suite.seedUser("poster", models.RoleUser)
	suite.adminID = suite.seedUser("reviewer", models.RoleAdmin)

	suite.categoryID = uuid.Must(uuid.NewV4())
	suite.Require().NoError(suite.db.Create(&models.Category{
		ID: suite.categoryID, Name: "repairs", Slug: "repairs",
	}).Error)
	suite.tagID = uuid.Must(uuid.NewV4())
	suite.Require().NoError(suite.db.Create(&models.Tag{
		ID: suite.tagID, CategoryID: suite.categoryID, Name: "plumbing",
	}).Error)
}

func (suite *MarketplaceIntegrationTestSuite) TearDownSuite() {
	suite.worker.Stop()
}

func (suite *MarketplaceIntegrationTestSuite) seedUser(name, role string) uuid.UUID {
	id := uuid.Must(uuid.NewV4())
	suite.Require().NoError(suite.db.Create(&models.User{
		ID:       id,
		Username: name,
		Email:    name + "@example.com",
		Password: "hashed",
		Role:     role,
		Mode:     models.ModeRequester,
	}).Error)
	return id
}

func (suite *MarketplaceIntegrationTestSuite) tokenFor(userID uuid.UUID, role string) string {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"mode":    models.ModeRequester,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("default_secret"))
	suite.Require().NoError(err)
	return token
}

func (suite *MarketplaceIntegrationTestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *MarketplaceIntegrationTestSuite) waitForNotifications(recipientID uuid.UUID, notifType string, want int) {
	deadline := time.Now().Add(10 * time.Second)
	for {
		var count int64
		suite.Require().NoError(suite.db.Model(&models.Notification{}).
			Where("recipient_id = ? AND type = ?", recipientID, notifType).
			Count(&count).Error)
		if count >= int64(want) {
			return
		}
		if time.Now().After(deadline) {
			suite.Require().FailNowf("notification never delivered",
				"wanted %d of type %s for %s, have %d", want, notifType, recipientID, count)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (suite *MarketplaceIntegrationTestSuite) TestTaskLifecycleOverHTTP() {
	ownerToken := suite.tokenFor(suite.ownerID, models.RoleUser)
	adminToken := suite.tokenFor(suite.adminID, models.RoleAdmin)

	// Owner posts a task; it enters the moderation queue.
	w := suite.request("POST", "/api/v1/tasks", ownerToken, gin.H{
		"marketplace_targets": []string{"city-a"},
		"category_id":         suite.categoryID.String(),
		"title":               "Fix a leaking pipe",
		"description":         "The pipe under the bathroom sink drips",
		"budget_amount":       4500,
		"tag_ids":             []string{suite.tagID.String()},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	taskID := created.ID.String()
	suite.Require().NotNil(created.ModerationStatus)
	suite.Equal(models.ModerationPending, *created.ModerationStatus)

	// Hidden from the public while pending.
	w = suite.request("GET", "/api/v1/tasks/"+taskID, "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request("GET", "/api/v1/tasks", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var listing struct {
		Total int64 `json:"total"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listing))
	suite.EqualValues(0, listing.Total)

	// The moderation queue requires the admin role.
	w = suite.request("GET", "/api/v1/admin/tasks/pending/count", ownerToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request("GET", "/api/v1/admin/tasks/pending/count", adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var pending struct {
		Pending int64 `json:"pending"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &pending))
	suite.EqualValues(1, pending.Pending)

	// Approval publishes the task.
	w = suite.request("POST", "/api/v1/admin/tasks/"+taskID+"/moderate", adminToken, gin.H{
		"action": "APPROVE",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request("GET", "/api/v1/tasks/"+taskID, "", nil)
	suite.Equal(http.StatusOK, w.Code)

	// A second decision on the same task conflicts.
	w = suite.request("POST", "/api/v1/admin/tasks/"+taskID+"/moderate", adminToken, gin.H{
		"action": "REJECT",
	})
	suite.Equal(http.StatusConflict, w.Code)

	// An owner edit pulls the task back out of the catalog.
	w = suite.request("PATCH", "/api/v1/tasks/"+taskID, ownerToken, gin.H{
		"title": "Fix a badly leaking pipe",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request("GET", "/api/v1/tasks/"+taskID, "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	var entries int64
	suite.Require().NoError(suite.db.Model(&models.TaskHistoryEntry{}).
		Where("task_id = ?", created.ID).Count(&entries).Error)
	suite.EqualValues(1, entries)

	// Delivery runs through redis and the worker into the inbox.
	suite.waitForNotifications(suite.ownerID, notify.TypeTaskSubmitted, 1)
	suite.waitForNotifications(suite.ownerID, notify.TypeTaskApproved, 1)
	suite.waitForNotifications(suite.ownerID, notify.TypeTaskResubmitted, 1)
	suite.waitForNotifications(suite.adminID, notify.TypeAdminReviewNeeded, 1)

	w = suite.request("GET", "/api/v1/notifications", ownerToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var inbox struct {
		Notifications []models.Notification `json:"notifications"`
		Total         int64                 `json:"total"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &inbox))
	suite.GreaterOrEqual(inbox.Total, int64(3))
}

func TestMarketplaceIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(MarketplaceIntegrationTestSuite))
}
