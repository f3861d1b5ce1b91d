// Package store provides Postgres-backed access to the parks and users
// databases.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// Park is one row of the parks database.
type Park struct {
	ID      string
	Lat     float64
	Lng     float64
	Name    string
	Admin   string
	Country string
	Bortle  int
}

// FullName renders the display name: "park, admin region, country".
func (p Park) FullName() string {
	return fmt.Sprintf("%s, %s, %s", p.Name, p.Admin, p.Country)
}

// ParkStore reads park records.
type ParkStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenParks connects to the parks database.
func OpenParks(dsn string, logger *slog.Logger) (*ParkStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open parks database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping parks database: %w", err)
	}
	return &ParkStore{db: db, logger: logger}, nil
}

// Park fetches one park by id. An unknown id is InvalidInput.
func (s *ParkStore) Park(ctx context.Context, id string) (Park, error) {
	var p Park
	err := s.db.QueryRowContext(ctx,
		`SELECT id, lat, lng, park_name, admin_name, country, light_pollution
		 FROM parks WHERE id = $1`, id,
	).Scan(&p.ID, &p.Lat, &p.Lng, &p.Name, &p.Admin, &p.Country, &p.Bortle)
	if errors.Is(err, sql.ErrNoRows) {
		return Park{}, domain.Errorf(domain.InvalidInput, "no park with id %q", id)
	}
	if err != nil {
		return Park{}, fmt.Errorf("query park %q: %w", id, err)
	}
	return p, nil
}

func (s *ParkStore) Close() error { return s.db.Close() }

// UserStore checks API credentials.
type UserStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenUsers connects to the users database.
func OpenUsers(dsn string, logger *slog.Logger) (*UserStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open users database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping users database: %w", err)
	}
	return &UserStore{db: db, logger: logger}, nil
}

// Authenticate reports whether the token matches the stored token for the
// username. An unknown username authenticates as false without error.
func (s *UserStore) Authenticate(ctx context.Context, username, token string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM users WHERE username = $1`, username,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user %q: %w", username, err)
	}
	return token == stored, nil
}

func (s *UserStore) Close() error { return s.db.Close() }
