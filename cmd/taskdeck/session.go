package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"taskdeck/internal/apiclient"
	"taskdeck/internal/domain"
	"taskdeck/internal/localstore"
	"taskdeck/internal/offline"

	"github.com/spf13/cobra"
)

const (
	credentialsKey = "session:credentials"

	// refreshSlack renews the access token this long before it expires.
	refreshSlack = 30 * time.Second
)

var errNotLoggedIn = errors.New("not logged in: run 'taskdeck login' first")

type credentials struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
}

func (c credentials) expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.Add(refreshSlack).After(c.ExpiresAt)
}

// session wires the local store, the API client, the connectivity monitor
// and one sync engine per collection for a single command.
type session struct {
	store     *localstore.SQLite
	client    *apiclient.Client
	monitor   *offline.Monitor
	tasks     *offline.Engine
	knowledge *offline.KnowledgeBase
	creds     credentials
	logger    *log.Logger
}

// openSession opens the local cache and builds the engines while offline.
// Call connect to probe the server; going online replays the queues.
func openSession(cmd *cobra.Command) (*session, error) {
	store, err := localstore.OpenSQLite(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	s := &session{store: store, logger: newLogger(cmd)}
	if err := loadCredentials(store, &s.creds); err != nil {
		store.Close()
		return nil, err
	}

	s.client = apiclient.New(cfg.ServerURL,
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithToken(s.creds.Token),
	)
	s.monitor = offline.NewMonitor(false)

	opts := []offline.Option{
		offline.WithLogger(s.logger),
		offline.WithSyncTimeout(cfg.Timeout),
	}
	s.tasks, err = offline.NewEngine("tasks", s.client.Tasks(), store, s.monitor, opts...)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load task cache: %w", err)
	}
	s.knowledge, err = offline.NewKnowledgeBase(s.client.Knowledge(), s.client, store, s.monitor, opts...)
	if err != nil {
		s.tasks.Close()
		store.Close()
		return nil, fmt.Errorf("load knowledge cache: %w", err)
	}
	return s, nil
}

// connect probes the server once. A reachable server with a stored
// session flips the monitor online, which replays both queues before
// returning. Otherwise the engines stay offline and serve the cache.
func (s *session) connect(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		s.logger.Printf("[taskdeck] server unreachable, working offline: %v", err)
		return fmt.Errorf("server %s is unreachable: %w", cfg.ServerURL, offline.ErrOffline)
	}
	if s.creds.Token == "" {
		s.logger.Printf("[taskdeck] not logged in, working offline")
		return errNotLoggedIn
	}
	if err := s.refresh(ctx); err != nil {
		s.logger.Printf("[taskdeck] token refresh failed: %v", err)
	}
	s.monitor.Set(true)
	return nil
}

// refresh renews an access token that is about to expire.
func (s *session) refresh(ctx context.Context) error {
	if s.creds.RefreshToken == "" || !s.creds.expired(time.Now()) {
		return nil
	}
	resp, err := s.client.Refresh(ctx, s.creds.RefreshToken)
	if err != nil {
		return err
	}
	s.creds.Token = resp.Token
	s.creds.ExpiresAt = expiry(resp.ExpiresIn)
	return saveCredentials(s.store, s.creds)
}

// signIn stores the credentials from a register or login answer.
func (s *session) signIn(resp *domain.AuthResponse) error {
	s.creds = credentials{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiry(resp.ExpiresIn),
	}
	if resp.User != nil {
		s.creds.UserID = resp.User.ID
		s.creds.Email = resp.User.Email
	}
	s.client.SetToken(resp.Token)
	return saveCredentials(s.store, s.creds)
}

func (s *session) signOut() error {
	s.creds = credentials{}
	s.client.SetToken("")
	return s.store.Delete(credentialsKey)
}

// engines returns the sync engines in replay order.
func (s *session) engines() []*offline.Engine {
	return []*offline.Engine{s.tasks, s.knowledge.Engine}
}

func (s *session) close() error {
	s.tasks.Close()
	s.knowledge.Close()
	return s.store.Close()
}

func loadCredentials(store *localstore.SQLite, c *credentials) error {
	raw, err := store.Load(credentialsKey)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}
	return nil
}

func saveCredentials(store *localstore.SQLite, c credentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := store.Save(credentialsKey, raw); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func expiry(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// withSession runs fn with an open, connected session and a context bound
// by --timeout. With requireOnline it fails fast instead of falling back to
// the local cache.
func withSession(cmd *cobra.Command, requireOnline bool, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	if err := s.connect(ctx); err != nil && requireOnline {
		return err
	}
	return fn(ctx, s)
}
