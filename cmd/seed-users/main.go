package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/database"
	"github.com/examplify/examplify-backend/internal/logger"
	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/repository"
	"github.com/examplify/examplify-backend/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(userRepo, cfg)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	fmt.Print("Enter Role (author/taker): ")
	roleStr, _ := reader.ReadString('\n')
	role := model.Role(strings.TrimSpace(roleStr))
	if !role.Valid() {
		fmt.Println("Error: Role must be 'author' or 'taker'")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	user := &model.User{
		Name:         name,
		Username:     username,
		Role:         role,
		PasswordHash: string(hashed),
	}

	if err := userRepo.Create(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	// Print a ready-to-use token so local setups can skip the login call.
	token, err := authService.GenerateToken(user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate token")
	}

	fmt.Printf("\nSuccess! User '%s' (%s, %s) created with ID: %s\n", user.Name, user.Username, user.Role, user.ID)
	fmt.Printf("Dev token: %s\n", token)
}
