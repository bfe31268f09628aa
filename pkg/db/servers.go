package db

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCommandServerNotFound = errors.New("command server config not found")
	ErrAPIServerNotFound     = errors.New("api server config not found")
)

// CommandServer is the TCP command port configuration.
type CommandServer struct {
	ProfileID    int64
	Host         string
	Port         int
	IdleTimeout  time.Duration
	AllowedCIDRs []string
}

// Address returns host:port.
func (c *CommandServer) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// APIServer is the HTTP API configuration.
type APIServer struct {
	ProfileID int64
	Enabled   bool
	Host      string
	Port      int
}

// Address returns host:port.
func (a *APIServer) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// CommandServerStore reads and writes command server settings.
type CommandServerStore interface {
	Get(ctx context.Context, profileID int64) (*CommandServer, error)
	Update(ctx context.Context, c *CommandServer) error
}

// APIServerStore reads and writes HTTP API settings.
type APIServerStore interface {
	Get(ctx context.Context, profileID int64) (*APIServer, error)
	Update(ctx context.Context, a *APIServer) error
}

// CommandServers returns the command server store.
func (db *DB) CommandServers() CommandServerStore {
	return &commandServerStore{db: db}
}

// APIServers returns the API server store.
func (db *DB) APIServers() APIServerStore {
	return &apiServerStore{db: db}
}

type commandServerStore struct {
	db *DB
}

func (s *commandServerStore) Get(ctx context.Context, profileID int64) (*CommandServer, error) {
	c := &CommandServer{ProfileID: profileID}
	var idleSec int
	var cidrs string
	err := s.db.QueryRowContext(ctx, `
		SELECT host, port, idle_timeout_sec, allowed_cidrs
		FROM command_servers WHERE profile_id = ?
	`, profileID).Scan(&c.Host, &c.Port, &idleSec, &cidrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommandServerNotFound
	}
	if err != nil {
		return nil, err
	}
	c.IdleTimeout = time.Duration(idleSec) * time.Second
	c.AllowedCIDRs = splitList(cidrs)
	return c, nil
}

func (s *commandServerStore) Update(ctx context.Context, c *CommandServer) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE command_servers
		SET host = ?, port = ?, idle_timeout_sec = ?, allowed_cidrs = ?
		WHERE profile_id = ?
	`, c.Host, c.Port, int(c.IdleTimeout/time.Second), strings.Join(c.AllowedCIDRs, ","), c.ProfileID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrCommandServerNotFound)
}

type apiServerStore struct {
	db *DB
}

func (s *apiServerStore) Get(ctx context.Context, profileID int64) (*APIServer, error) {
	a := &APIServer{ProfileID: profileID}
	err := s.db.QueryRowContext(ctx, `
		SELECT enabled, host, port FROM api_servers WHERE profile_id = ?
	`, profileID).Scan(&a.Enabled, &a.Host, &a.Port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIServerNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *apiServerStore) Update(ctx context.Context, a *APIServer) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_servers SET enabled = ?, host = ?, port = ? WHERE profile_id = ?
	`, a.Enabled, a.Host, a.Port, a.ProfileID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrAPIServerNotFound)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
