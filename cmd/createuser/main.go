// Command createuser is an operator tool that creates a pre-verified
// account directly in the database, bypassing the email flow. Useful for
// bootstrapping an admin user on a fresh installation.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/manukko/todos/internal/dbx"
	"github.com/manukko/todos/internal/server/auth"
	"github.com/manukko/todos/internal/server/config"
	"github.com/manukko/todos/internal/server/models"
	"github.com/manukko/todos/internal/server/repositories/repomanager"
	"github.com/manukko/todos/internal/server/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	admin := flag.Bool("admin", false, "create the account with the admin role")
	flag.Parse()

	cfg := config.LoadConfig()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if err := services.CheckUsername(username); err != nil {
		return err
	}

	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	fmt.Println("Enter password")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	if err := services.CheckPassword(string(password)); err != nil {
		return err
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	repos := repomanager.NewPostgresRepositoryManager(db)
	if err := repos.RunMigrations(ctx); err != nil {
		return err
	}

	user, err := createAccount(ctx, db, repos, username, email, hash, *admin)
	if err != nil {
		return err
	}

	fmt.Printf("created user %q (id %d)\n", user.Username, user.ID)
	return nil
}

// createAccount creates, verifies and (optionally) promotes the account in a
// single transaction, so a failure never leaves a half-initialized row behind.
func createAccount(ctx context.Context, db *sql.DB, repos repomanager.RepositoryManager, username, email, hash string, admin bool) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := repos.Users(tx)

		var err error
		user, err = userRepo.Create(ctx, username, email, hash)
		if err != nil {
			return err
		}

		if err := userRepo.MarkVerified(ctx, user.ID); err != nil {
			return err
		}

		if admin {
			query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
			if _, err := tx.ExecContext(ctx, query, models.RoleAdmin, user.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
