package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// canAccess is the uniform ownership policy for single-task operations.
func canAccess(principal *models.User, task *models.Task) bool {
	return task.UserID == principal.ID || principal.Role == models.RoleAdmin
}

func (api *TaskAPI) getTasks(ctx *gin.Context) {
	principal := currentUser(ctx)

	sortFields, err := parseSort(ctx.Query("sort"))
	if err != nil {
		sendFieldErrors(ctx, []FieldError{{Field: "sort", Message: err.Error()}})
		return
	}

	status := ctx.Query("status")
	if status != "" && !allowedTaskStatuses[status] {
		sendFieldErrors(ctx, []FieldError{{Field: "status", Message: fieldMessages["status"]}})
		return
	}
	priority := ctx.Query("priority")
	if priority != "" && !allowedTaskPriorities[priority] {
		sendFieldErrors(ctx, []FieldError{{Field: "priority", Message: fieldMessages["priority"]}})
		return
	}

	query := models.TaskQuery{
		Status:   status,
		Priority: priority,
		Sort:     sortFields,
		Page:     parsePositiveInt(ctx.Query("page"), defaultPage),
		Limit:    parsePositiveInt(ctx.Query("limit"), defaultLimit),
	}
	if query.Limit > maxLimit {
		query.Limit = maxLimit
	}
	if principal.Role != models.RoleAdmin {
		query.OwnerID = principal.ID
	}

	tasks, total, err := api.taskRepo.ListTasks(ctx.Request.Context(), query)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	sendResponse(ctx, http.StatusOK, gin.H{
		"tasks":      tasks,
		"pagination": models.NewPagination(query.Page, query.Limit, total),
	}, "tasks retrieved successfully")
}

func (api *TaskAPI) getTask(ctx *gin.Context) {
	principal := currentUser(ctx)

	task, err := api.taskRepo.GetTaskByID(ctx.Request.Context(), ctx.Param("taskID"))
	if err != nil {
		sendDomainError(ctx, err)
		return
	}
	if !canAccess(principal, task) {
		sendError(ctx, http.StatusForbidden, "not authorized to access this task")
		return
	}

	sendResponse(ctx, http.StatusOK, gin.H{"task": task}, "task retrieved successfully")
}

var allowedTaskStatuses = map[string]bool{
	models.StatusPending:    true,
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
}

var allowedTaskPriorities = map[string]bool{
	models.PriorityLow:    true,
	models.PriorityMedium: true,
	models.PriorityHigh:   true,
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	principal := currentUser(ctx)

	var req models.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrBadRequest.Error())
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		sendFieldErrors(ctx, validationFieldErrors(err))
		return
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	// Ownership cannot be spoofed: the owner is always the requester.
	task := models.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
		UserID:      principal.ID,
		CreatedAt:   time.Now(),
	}

	if err := api.taskRepo.CreateTask(ctx.Request.Context(), &task); err != nil {
		sendDomainError(ctx, err)
		return
	}

	task.Owner = &models.Owner{ID: principal.ID, Name: principal.Name, Email: principal.Email}

	log.Printf("[SUCCESS] task created by user %s: %s", principal.Email, task.Title)
	sendResponse(ctx, http.StatusCreated, gin.H{"task": task}, "task created successfully")
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	principal := currentUser(ctx)
	id := ctx.Param("taskID")

	var req models.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendError(ctx, http.StatusBadRequest, errors.ErrBadRequest.Error())
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		sendFieldErrors(ctx, validationFieldErrors(err))
		return
	}

	task, err := api.taskRepo.GetTaskByID(ctx.Request.Context(), id)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}
	if !canAccess(principal, task) {
		sendError(ctx, http.StatusForbidden, "not authorized to update this task")
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate.Set {
		task.DueDate = req.DueDate.Value
	}

	if err := api.taskRepo.UpdateTask(ctx.Request.Context(), id, task); err != nil {
		sendDomainError(ctx, err)
		return
	}

	log.Printf("[SUCCESS] task updated: %s", task.Title)
	sendResponse(ctx, http.StatusOK, gin.H{"task": task}, "task updated successfully")
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	principal := currentUser(ctx)
	id := ctx.Param("taskID")

	task, err := api.taskRepo.GetTaskByID(ctx.Request.Context(), id)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}
	if !canAccess(principal, task) {
		sendError(ctx, http.StatusForbidden, "not authorized to delete this task")
		return
	}

	if err := api.taskRepo.DeleteTask(ctx.Request.Context(), id); err != nil {
		sendDomainError(ctx, err)
		return
	}

	log.Printf("[SUCCESS] task deleted: %s", task.Title)
	sendResponse(ctx, http.StatusOK, gin.H{}, "task deleted successfully")
}

func (api *TaskAPI) getTaskStats(ctx *gin.Context) {
	principal := currentUser(ctx)

	ownerID := ""
	if principal.Role != models.RoleAdmin {
		ownerID = principal.ID
	}

	stats, err := api.taskRepo.CountTasksByStatus(ctx.Request.Context(), ownerID)
	if err != nil {
		sendDomainError(ctx, err)
		return
	}

	sendResponse(ctx, http.StatusOK, gin.H{"stats": stats}, "task statistics retrieved successfully")
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
