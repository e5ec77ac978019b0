package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lunaveil/seance/internal/auth"
	"github.com/lunaveil/seance/internal/models"
)

func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (id, email, password, username, avatar_seed, is_ephemeral)
	      VALUES ($1, $2, $3, $4, $5, $6)`

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username,
			user.AvatarSeed, user.IsEphemeral,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, email, password, username, avatar_seed, is_ephemeral
	FROM users
	WHERE email=$1
	`
	err := DB.QueryRow(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.AvatarSeed, &u.IsEphemeral,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthenticateUser verifies email/password against the stored Argon2id hash
// and mints a session token carrying the user's identity claims.
func AuthenticateUser(ctx context.Context, email, password string) (string, error) {
	u, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user lookup failed: %w", err)
	}

	ok, err := auth.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		return "", fmt.Errorf("failed to compare password: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("invalid credentials")
	}

	return auth.CreateJWT(models.Participant{
		UID:        u.ID,
		Username:   u.Username,
		AvatarSeed: u.AvatarSeed,
	})
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, email, password, username, avatar_seed, is_ephemeral
	FROM users
	WHERE id=$1
	`
	err := DB.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.AvatarSeed, &u.IsEphemeral,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
