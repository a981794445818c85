package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, id string, user *models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) ListTasks(ctx context.Context, query models.TaskQuery) ([]models.Task, int, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.Task), args.Int(1), args.Error(2)
}

func (m *MockTaskRepository) UpdateTask(ctx context.Context, id string, task *models.Task) error {
	args := m.Called(ctx, id, task)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) CountTasksByStatus(ctx context.Context, ownerID string) (models.TaskStats, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(models.TaskStats), args.Error(1)
}

func generateTestToken(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, _ := token.SignedString([]byte("shouldbeinVaultsecret"))
	return tokenString
}

func activeTestUser(id, role string) *models.User {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	return &models.User{
		ID:        id,
		Name:      "Test User",
		Email:     "test@example.com",
		Password:  string(hashedPassword),
		Role:      role,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func expectAuthenticated(mockUserRepo *MockUserRepository, user *models.User) {
	mockUserRepo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		request models.RegisterRequest
		want    struct {
			statusCode int
			contains   string
		}
		mockSetup func(*MockUserRepository)
	}{
		{
			name: "successful registration",
			request: models.RegisterRequest{
				Name:     "Test User",
				Email:    "test@example.com",
				Password: "password123",
				Role:     "user",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 201,
				contains:   "user registered successfully",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(nil, errors.ErrUserNotFound)
				mockUserRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
			},
		},
		{
			name: "email is stored lowercase",
			request: models.RegisterRequest{
				Name:     "Test User",
				Email:    "Mixed.Case@Example.COM",
				Password: "password123",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 201,
				contains:   "mixed.case@example.com",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, "mixed.case@example.com").Return(nil, errors.ErrUserNotFound)
				mockUserRepo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
			},
		},
		{
			name: "duplicate email",
			request: models.RegisterRequest{
				Name:     "Test User",
				Email:    "existing@example.com",
				Password: "password123",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 400,
				contains:   "user already exists with this email",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				existing := activeTestUser("user1", "user")
				existing.Email = "existing@example.com"
				mockUserRepo.On("GetUserByEmail", mock.Anything, "existing@example.com").Return(existing, nil)
			},
		},
		{
			name: "invalid input data",
			request: models.RegisterRequest{
				Name:     "T",
				Email:    "invalid-email",
				Password: "123",
				Role:     "superuser",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 400,
				contains:   "validation failed",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			mockUserRepo := &MockUserRepository{}
			mockTaskRepo := &MockTaskRepository{}
			tt.mockSetup(mockUserRepo)

			api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})

			jsonData, _ := json.Marshal(tt.request)
			req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(jsonData))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.want.contains)
			if tt.want.statusCode == 201 {
				assert.Contains(t, w.Body.String(), "token")
				assert.NotContains(t, w.Body.String(), "password123")
			}

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestRegisterFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	api := NewTaskAPI(&MockUserRepository{}, &MockTaskRepository{}, &Config{})

	body := []byte(`{"name":"Test User","password":"password123"}`)
	req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	api.httpSrv.Handler.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)

	var response struct {
		Success bool         `json:"success"`
		Errors  []FieldError `json:"errors"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
	assert.NotEmpty(t, response.Errors)
	assert.Equal(t, "email", response.Errors[0].Field)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		request models.LoginRequest
		want    struct {
			statusCode int
			contains   string
		}
		mockSetup func(*MockUserRepository)
	}{
		{
			name: "successful login",
			request: models.LoginRequest{
				Email:    "test@example.com",
				Password: "password123",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 200,
				contains:   "login successful",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(activeTestUser("user123", "user"), nil)
			},
		},
		{
			name: "unknown email",
			request: models.LoginRequest{
				Email:    "nobody@example.com",
				Password: "password123",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 401,
				contains:   "invalid credentials",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, errors.ErrUserNotFound)
			},
		},
		{
			name: "wrong password",
			request: models.LoginRequest{
				Email:    "test@example.com",
				Password: "wrongpassword",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 401,
				contains:   "invalid credentials",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(activeTestUser("user123", "user"), nil)
			},
		},
		{
			name: "deactivated account",
			request: models.LoginRequest{
				Email:    "test@example.com",
				Password: "password123",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 401,
				contains:   "account is deactivated",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				user := activeTestUser("user123", "user")
				user.Active = false
				mockUserRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			mockUserRepo := &MockUserRepository{}
			mockTaskRepo := &MockTaskRepository{}
			tt.mockSetup(mockUserRepo)

			api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})

			jsonData, _ := json.Marshal(tt.request)
			req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonData))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.want.contains)
			if tt.want.statusCode == 401 {
				assert.NotContains(t, w.Body.String(), "token")
			}

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestGetMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserRepo := &MockUserRepository{}
	mockTaskRepo := &MockTaskRepository{}

	user := activeTestUser("user123", "user")
	expectAuthenticated(mockUserRepo, user)

	api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken("user123"))

	w := httptest.NewRecorder()
	api.httpSrv.Handler.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "test@example.com")
	assert.NotContains(t, w.Body.String(), user.Password)
}

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name    string
		request models.UpdateProfileRequest
		want    struct {
			statusCode int
			contains   string
		}
		mockSetup func(*MockUserRepository)
	}{
		{
			name: "update name only",
			request: models.UpdateProfileRequest{
				Name: "Renamed User",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 200,
				contains:   "Renamed User",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("UpdateUser", mock.Anything, "user123", mock.AnythingOfType("*models.User")).Return(nil)
			},
		},
		{
			name: "new email already taken",
			request: models.UpdateProfileRequest{
				Email: "taken@example.com",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 400,
				contains:   "user already exists with this email",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				other := activeTestUser("user456", "user")
				other.Email = "taken@example.com"
				mockUserRepo.On("GetUserByEmail", mock.Anything, "taken@example.com").Return(other, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			mockUserRepo := &MockUserRepository{}
			mockTaskRepo := &MockTaskRepository{}

			user := activeTestUser("user123", "user")
			expectAuthenticated(mockUserRepo, user)
			tt.mockSetup(mockUserRepo)

			api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})

			jsonData, _ := json.Marshal(tt.request)
			req, _ := http.NewRequest("PUT", "/auth/profile", bytes.NewBuffer(jsonData))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+generateTestToken("user123"))

			w := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.want.contains)

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestUpdatePassword(t *testing.T) {
	tests := []struct {
		name    string
		request models.UpdatePasswordRequest
		want    struct {
			statusCode int
			contains   string
		}
		mockSetup func(*MockUserRepository)
	}{
		{
			name: "successful password change reissues token",
			request: models.UpdatePasswordRequest{
				CurrentPassword: "password123",
				NewPassword:     "newpassword456",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 200,
				contains:   "token",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
				mockUserRepo.On("UpdateUser", mock.Anything, "user123", mock.AnythingOfType("*models.User")).Return(nil)
			},
		},
		{
			name: "wrong current password",
			request: models.UpdatePasswordRequest{
				CurrentPassword: "wrongpassword",
				NewPassword:     "newpassword456",
			},
			want: struct {
				statusCode int
				contains   string
			}{
				statusCode: 401,
				contains:   "current password is incorrect",
			},
			mockSetup: func(mockUserRepo *MockUserRepository) {
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			mockUserRepo := &MockUserRepository{}
			mockTaskRepo := &MockTaskRepository{}

			user := activeTestUser("user123", "user")
			expectAuthenticated(mockUserRepo, user)
			tt.mockSetup(mockUserRepo)

			api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})

			jsonData, _ := json.Marshal(tt.request)
			req, _ := http.NewRequest("PUT", "/auth/password", bytes.NewBuffer(jsonData))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+generateTestToken("user123"))

			w := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.want.contains)

			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	api := NewTaskAPI(&MockUserRepository{}, &MockTaskRepository{}, &Config{})

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	api.httpSrv.Handler.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "uptime")
}

func TestServerErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		method  string
		path    string
		want    struct {
			statusCode int
		}
	}{
		{
			name:   "invalid JSON in request",
			body:   "invalid json",
			method: "POST",
			path:   "/auth/register",
			want: struct {
				statusCode int
			}{
				statusCode: 400,
			},
		},
		{
			name:   "unknown route",
			body:   "",
			method: "GET",
			path:   "/nope",
			want: struct {
				statusCode int
			}{
				statusCode: 404,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			api := NewTaskAPI(&MockUserRepository{}, &MockTaskRepository{}, &Config{})

			req, _ := http.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	api := NewTaskAPI(&MockUserRepository{}, &MockTaskRepository{}, &Config{})

	assert.NotNil(t, api)
	assert.NotNil(t, api.httpSrv)
	assert.NoError(t, api.Shutdown(context.Background()))
}

func BenchmarkLogin(b *testing.B) {
	gin.SetMode(gin.TestMode)
	mockUserRepo := &MockUserRepository{}
	mockTaskRepo := &MockTaskRepository{}

	mockUserRepo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(activeTestUser("user123", "user"), nil)

	api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})

	loginRequest := models.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	}
	jsonData, _ := json.Marshal(loginRequest)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonData))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		api.httpSrv.Handler.ServeHTTP(w, req)
	}
}

func BenchmarkGetTasks(b *testing.B) {
	gin.SetMode(gin.TestMode)
	mockUserRepo := &MockUserRepository{}
	mockTaskRepo := &MockTaskRepository{}

	user := activeTestUser("user123", "user")
	expectAuthenticated(mockUserRepo, user)

	tasks := []models.Task{
		{
			ID:          "task1",
			Title:       "Task 1",
			Description: "Description 1",
			Status:      models.StatusPending,
			Priority:    models.PriorityMedium,
			UserID:      "user123",
		},
	}
	mockTaskRepo.On("ListTasks", mock.Anything, mock.AnythingOfType("models.TaskQuery")).Return(tasks, 1, nil)

	api := NewTaskAPI(mockUserRepo, mockTaskRepo, &Config{})
	token := generateTestToken("user123")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequest("GET", "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		api.httpSrv.Handler.ServeHTTP(w, req)
	}
}
