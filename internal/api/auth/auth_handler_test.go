package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, nickname, password string) (string, error) {
	args := m.Called(ctx, nickname, password)
	return args.String(0), args.Error(1)
}

func TestLoginHandler(t *testing.T) {
	logger := slog.Default()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, logger)

		mockService.On("Login", mock.Anything, "alice", "password123").Return("signed.jwt.token", nil).Once()

		body := bytes.NewBufferString(`{"nickname":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/users/login", body)
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "signed.jwt.token", resp.Token)
		mockService.AssertExpectations(t)
	})

	t.Run("AuthenticationFailed", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, logger)

		mockService.On("Login", mock.Anything, "alice", "wrong").Return("", nil).Once()

		body := bytes.NewBufferString(`{"nickname":"alice","password":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/users/login", body)
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Throttled", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, logger)

		mockService.On("Login", mock.Anything, "alice", "password123").Return("", ErrTooManyAttempts).Once()

		body := bytes.NewBufferString(`{"nickname":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/users/login", body)
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, logger)

		mockService.On("Login", mock.Anything, "alice", "password123").Return("", errors.New("connection refused")).Once()

		body := bytes.NewBufferString(`{"nickname":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/users/login", body)
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, logger)

		body := bytes.NewBufferString(`{"nickname":`)
		req := httptest.NewRequest(http.MethodPost, "/users/login", body)
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Login")
	})
}
