// seed creates (or resets) a demo user in the local dev database.
// Run: go run ./cmd/seed [-email demo@example.com] [-password ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/credential-gateway/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/credential-gateway/internal/password"
	"github.com/joho/godotenv"
)

func main() {
	emailFlag := flag.String("email", "demo@gmail.com", "demo user email")
	passwordFlag := flag.String("password", "Demo-Passw0rd!", "demo user password")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set. Copy .env.example to .env or export it")
	}

	pool, err := postgres.NewPool(ctx, dbURL, nil)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	hash, err := password.NewBcryptHasher(password.DefaultCost).Hash(*passwordFlag)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	// Re-running resets the password and drops any issued token.
	var userID string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, auth_token = NULL, updated_at = NOW()
		RETURNING id`,
		*emailFlag, hash,
	).Scan(&userID)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Email:    %s\n", *emailFlag)
	fmt.Printf("  Password: %s\n", *passwordFlag)
	fmt.Printf("  User ID:  %s\n", userID)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1 - log in (the token is also set as the auth_token cookie):")
	fmt.Println()
	fmt.Printf("    curl -s -c cookies.txt -X POST http://localhost:8080/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", *emailFlag, *passwordFlag)
	fmt.Println()
	fmt.Println("  Step 2 - who am I:")
	fmt.Println()
	fmt.Println("    curl -s -b cookies.txt http://localhost:8080/auth/me")
	fmt.Println()
	fmt.Println("  Step 3 - log out:")
	fmt.Println()
	fmt.Println("    curl -s -b cookies.txt -X POST http://localhost:8080/auth/logout")
	fmt.Println()
	fmt.Println("  Six logins from the same IP within a minute return 429 with Retry-After.")
}
