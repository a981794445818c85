package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, user *models.User) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, query models.TaskQuery) ([]models.Task, int, error)
	UpdateTask(ctx context.Context, id string, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	CountTasksByStatus(ctx context.Context, ownerID string) (models.TaskStats, error)
}

type TaskAPI struct {
	httpSrv  *http.Server
	userRepo UserRepository
	taskRepo TaskRepository
	tokens   *auth.TokenManager
	cfg      *Config
	started  time.Time
}

func NewTaskAPI(userRepo UserRepository, taskRepo TaskRepository, cfg *Config) *TaskAPI {
	if userRepo == nil || taskRepo == nil {
		return nil
	}
	if cfg == nil {
		cfg = defaultConfig()
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = defaultJWTSecret
	}

	api := TaskAPI{
		httpSrv: &http.Server{
			Addr: fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port),
		},
		userRepo: userRepo,
		taskRepo: taskRepo,
		tokens:   auth.NewTokenManager(secret, cfg.TokenTTL()),
		cfg:      cfg,
		started:  time.Now(),
	}

	api.configRoutes()

	return &api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	return api.httpSrv.ListenAndServe()
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	if api.httpSrv == nil {
		return nil
	}
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) configRoutes() {
	router := gin.Default()

	router.Use(CORSMiddleware(api.cfg.CORSOrigin))
	router.Use(RateLimit(api.cfg))
	router.Use(GzipResponse())

	router.NoMethod(func(ctx *gin.Context) {
		sendError(ctx, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.NoRoute(func(ctx *gin.Context) {
		sendError(ctx, http.StatusNotFound, errors.ErrNotFound.Error())
	})

	router.GET("/health", api.health)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", api.register)
		authGroup.POST("/login", api.login)
		authGroup.GET("/me", api.Authenticate(), api.getMe)
		authGroup.PUT("/profile", api.Authenticate(), api.updateProfile)
		authGroup.PUT("/password", api.Authenticate(), api.updatePassword)
	}

	tasks := router.Group("/tasks", api.Authenticate())
	{
		tasks.GET("", api.getTasks)
		tasks.GET("/stats/summary", api.getTaskStats)
		tasks.GET("/:taskID", api.getTask)
		tasks.POST("", api.createTask)
		tasks.PUT("/:taskID", api.updateTask)
		tasks.DELETE("/:taskID", api.deleteTask)
	}

	api.httpSrv.Handler = router
}

func (api *TaskAPI) health(ctx *gin.Context) {
	sendResponse(ctx, http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(api.started).String(),
	}, "service is healthy")
}

func (api *TaskAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrBadRequest.Error())
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		sendFieldErrors(ctx, validationFieldErrors(err))
		return
	}

	email := normalizeEmail(req.Email)
	if existing, _ := api.userRepo.GetUserByEmail(ctx.Request.Context(), email); existing != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrUserAlreadyExists.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}

	user := models.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     email,
		Password:  hash,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := api.userRepo.CreateUser(ctx.Request.Context(), &user); err != nil {
		sendDomainError(ctx, err)
		return
	}

	token, err := api.tokens.Generate(user.ID)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	log.Println("[SUCCESS] new user registered:", user.Email)
	sendResponse(ctx, http.StatusCreated, gin.H{
		"user":  publicUser(&user),
		"token": token,
	}, "user registered successfully")
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrBadRequest.Error())
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		sendFieldErrors(ctx, validationFieldErrors(err))
		return
	}

	user, err := api.userRepo.GetUserByEmail(ctx.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		sendError(ctx, http.StatusUnauthorized, errors.ErrInvalidCredentials.Error())
		return
	}
	if !user.Active {
		sendError(ctx, http.StatusUnauthorized, errors.ErrAccountDeactivated.Error())
		return
	}
	if !auth.CheckPassword(req.Password, user.Password) {
		sendError(ctx, http.StatusUnauthorized, errors.ErrInvalidCredentials.Error())
		return
	}

	token, err := api.tokens.Generate(user.ID)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	log.Println("[SUCCESS] user logged in:", user.Email)
	sendResponse(ctx, http.StatusOK, gin.H{
		"user":  publicUser(user),
		"token": token,
	}, "login successful")
}

func (api *TaskAPI) getMe(ctx *gin.Context) {
	user := currentUser(ctx)
	sendResponse(ctx, http.StatusOK, gin.H{"user": publicUser(user)}, "user retrieved successfully")
}

func (api *TaskAPI) updateProfile(ctx *gin.Context) {
	var req models.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrBadRequest.Error())
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		sendFieldErrors(ctx, validationFieldErrors(err))
		return
	}

	principal := currentUser(ctx)
	user, err := api.userRepo.GetUserByID(ctx.Request.Context(), principal.ID)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		email := normalizeEmail(req.Email)
		if email != user.Email {
			if existing, _ := api.userRepo.GetUserByEmail(ctx.Request.Context(), email); existing != nil {
				sendError(ctx, http.StatusBadRequest, errors.ErrUserAlreadyExists.Error())
				return
			}
			user.Email = email
		}
	}

	if err := api.userRepo.UpdateUser(ctx.Request.Context(), user.ID, user); err != nil {
		sendDomainError(ctx, err)
		return
	}

	log.Println("[SUCCESS] user profile updated:", user.Email)
	sendResponse(ctx, http.StatusOK, gin.H{"user": publicUser(user)}, "profile updated successfully")
}

func (api *TaskAPI) updatePassword(ctx *gin.Context) {
	var req models.UpdatePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrBadRequest.Error())
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		sendFieldErrors(ctx, validationFieldErrors(err))
		return
	}

	principal := currentUser(ctx)
	user, err := api.userRepo.GetUserByID(ctx.Request.Context(), principal.ID)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.Password) {
		sendError(ctx, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}
	user.Password = hash

	if err := api.userRepo.UpdateUser(ctx.Request.Context(), user.ID, user); err != nil {
		sendDomainError(ctx, err)
		return
	}

	token, err := api.tokens.Generate(user.ID)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	log.Println("[SUCCESS] password updated for user:", user.Email)
	sendResponse(ctx, http.StatusOK, gin.H{"token": token}, "password updated successfully")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
