package service

import (
	"errors"
	"testing"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/pkg/hash"
	"taskdeck/pkg/jwt"
)

func TestAuthService_Register(t *testing.T) {
	repo := newMockUserRepository()
	service := NewAuthService(repo, "test-secret", 15*time.Minute, 7*24*time.Hour)

	tests := []struct {
		name    string
		req     *domain.RegisterRequest
		wantErr error
		setup   func()
	}{
		{
			name: "successful registration",
			req: &domain.RegisterRequest{
				Username: "newuser",
				Email:    "new@example.com",
				Password: "Password123!",
			},
			setup: func() {},
		},
		{
			name: "duplicate email",
			req: &domain.RegisterRequest{
				Username: "anotheruser",
				Email:    "existing@example.com",
				Password: "Password123!",
			},
			wantErr: ErrEmailTaken,
			setup: func() {
				repo.Create(&domain.User{
					ID:       "existing-id",
					Username: "existinguser",
					Email:    "existing@example.com",
					Password: "hashed",
				})
			},
		},
		{
			name: "duplicate username",
			req: &domain.RegisterRequest{
				Username: "duplicateuser",
				Email:    "unique@example.com",
				Password: "Password123!",
			},
			wantErr: ErrUsernameTaken,
			setup: func() {
				repo.Create(&domain.User{
					ID:       "dup-id",
					Username: "duplicateuser",
					Email:    "other@example.com",
					Password: "hashed",
				})
			},
		},
		{
			name: "weak password",
			req: &domain.RegisterRequest{
				Username: "testuser",
				Email:    "test@example.com",
				Password: "weak",
			},
			wantErr: ErrInvalidInput,
			setup:   func() {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.users = make(map[string]*domain.User)
			tt.setup()

			resp, err := service.Register(tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() unexpected error = %v", err)
			}

			created, err := repo.FindByEmail(tt.req.Email)
			if err != nil {
				t.Fatal("Register() user not created in repository")
			}
			if created.Role != domain.RoleUser {
				t.Errorf("Register() role = %q, want %q", created.Role, domain.RoleUser)
			}
			if created.Password == tt.req.Password {
				t.Error("Register() stored the plain password")
			}
			if resp.Token == "" || resp.RefreshToken == "" {
				t.Error("Register() returned empty tokens")
			}
			if resp.User.Password != "" {
				t.Error("Register() returned user with password")
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	repo := newMockUserRepository()
	service := NewAuthService(repo, "test-secret-key", 15*time.Minute, 7*24*time.Hour)

	password := "UserPassword123!"
	hashedPassword, _ := hash.Hash(password)

	repo.Create(&domain.User{
		ID:       "test-user-id",
		Username: "testuser",
		Email:    "test@example.com",
		Password: hashedPassword,
	})

	tests := []struct {
		name    string
		req     *domain.LoginRequest
		wantErr bool
	}{
		{
			name: "successful login",
			req: &domain.LoginRequest{
				Email:    "test@example.com",
				Password: password,
			},
			wantErr: false,
		},
		{
			name: "wrong password",
			req: &domain.LoginRequest{
				Email:    "test@example.com",
				Password: "WrongPassword",
			},
			wantErr: true,
		},
		{
			name: "non-existent email",
			req: &domain.LoginRequest{
				Email:    "nonexistent@example.com",
				Password: password,
			},
			wantErr: true,
		},
		{
			name: "empty password",
			req: &domain.LoginRequest{
				Email:    "test@example.com",
				Password: "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.Login(tt.req)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Login() error = %v, want %v", err, ErrInvalidCredentials)
				}
				return
			}

			if err != nil {
				t.Errorf("Login() unexpected error = %v", err)
				return
			}

			if resp.Token == "" {
				t.Error("Login() returned empty access token")
			}

			if resp.RefreshToken == "" {
				t.Error("Login() returned empty refresh token")
			}

			if resp.User == nil {
				t.Fatal("Login() returned nil user")
			}

			if resp.User.Password != "" {
				t.Error("Login() returned user with password")
			}

			if resp.ExpiresIn != int64(15*time.Minute.Seconds()) {
				t.Errorf("Login() expiresIn = %v, want %v", resp.ExpiresIn, 15*60)
			}
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	repo := newMockUserRepository()
	secret := "refresh-test-secret-key"
	service := NewAuthService(repo, secret, 15*time.Minute, 7*24*time.Hour)

	repo.Create(&domain.User{
		ID:       "refresh-user-id",
		Username: "refreshuser",
		Email:    "refresh@example.com",
		Password: "hashed",
	})

	validToken, _ := jwt.GenerateRefreshToken("refresh-user-id", 7*24*time.Hour, secret)
	expiredToken, _ := jwt.GenerateRefreshToken("refresh-user-id", -1*time.Hour, secret)
	accessToken, _ := jwt.GenerateToken("refresh-user-id", time.Hour, secret)
	orphanToken, _ := jwt.GenerateRefreshToken("deleted-user-id", time.Hour, secret)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid refresh token", token: validToken},
		{name: "expired refresh token", token: expiredToken, wantErr: true},
		{name: "access token used as refresh token", token: accessToken, wantErr: true},
		{name: "user no longer exists", token: orphanToken, wantErr: true},
		{name: "invalid refresh token", token: "invalid.token.here", wantErr: true},
		{name: "empty refresh token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.RefreshToken(&domain.RefreshTokenRequest{RefreshToken: tt.token})

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("RefreshToken() error = %v, want %v", err, ErrInvalidToken)
				}
				return
			}

			if err != nil {
				t.Errorf("RefreshToken() unexpected error = %v", err)
				return
			}

			if resp.Token == "" {
				t.Error("RefreshToken() returned empty access token")
			}

			claims, err := service.ValidateToken(resp.Token)
			if err != nil {
				t.Fatalf("RefreshToken() issued an invalid token: %v", err)
			}
			if claims.UserID != "refresh-user-id" {
				t.Errorf("RefreshToken() user = %q", claims.UserID)
			}
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	repo := newMockUserRepository()
	secret := "validation-test-secret"
	service := NewAuthService(repo, secret, 15*time.Minute, 7*24*time.Hour)

	validToken, _ := jwt.GenerateToken("user-id", 1*time.Hour, secret)
	foreignToken, _ := jwt.GenerateToken("user-id", 1*time.Hour, "another-secret")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid token", token: validToken},
		{name: "signed with another secret", token: foreignToken, wantErr: true},
		{name: "invalid token", token: "invalid.token.format", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)

			if tt.wantErr {
				if err == nil {
					t.Error("ValidateToken() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ValidateToken() unexpected error = %v", err)
				return
			}

			if claims == nil || claims.UserID != "user-id" {
				t.Errorf("ValidateToken() claims = %+v", claims)
			}
		})
	}
}
