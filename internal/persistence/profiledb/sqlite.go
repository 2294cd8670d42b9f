// Package profiledb persists player profiles and the catalog digests behind
// them in a sqlite file. Saves funnel through a single writer goroutine so
// the sim loop never blocks on disk; loads read the db directly.
package profiledb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"driftbase.gg/internal/sim/catalogs"
	"driftbase.gg/internal/sim/profile"
	"driftbase.gg/internal/sim/tuning"
)

type Store struct {
	db *sql.DB

	ch   chan saveReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type saveReq struct {
	id   string
	json []byte
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		// Sized for a full-server save burst at shutdown.
		ch: make(chan saveReq, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the save-heavy write pattern.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// SaveProfile queues the profile for the writer goroutine. Blocks only when
// the queue is full; a profile save is never dropped.
func (s *Store) SaveProfile(p *profile.Profile) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.ch <- saveReq{id: p.ID, json: b}
	return nil
}

// LoadProfile reads one profile by id; (nil, nil) when absent.
func (s *Store) LoadProfile(id string) (*profile.Profile, error) {
	var raw string
	err := s.db.QueryRow(`SELECT json FROM profiles WHERE id=?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}
	return &p, nil
}

// LoadAll reads every stored profile, for startup hydration.
func (s *Store) LoadAll() ([]*profile.Profile, error) {
	rows, err := s.db.Query(`SELECT id, json FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*profile.Profile
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var p profile.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", id, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpsertCatalogs records the loaded catalog JSON and digests so a stored
// profile can always be matched to the data it was simulated against.
func (s *Store) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type row struct {
		name   string
		digest string
		json   []byte
	}
	var rows []row
	add := func(name, digest, file string) {
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil || len(b) == 0 {
			return
		}
		rows = append(rows, row{name: name, digest: digest, json: b})
	}
	if configDir != "" {
		add("recipes", cats.Recipes.Digest, "recipes.json")
		add("areas", cats.Areas.Digest, "areas.json")
		add("items", cats.Items.Digest, "items.json")
		add("traders", cats.Traders.Digest, "traders.json")
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, row{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO profiles(id,json,updated_at) VALUES(?,?,?)`)
	if err != nil {
		// Drain the queue so senders never block on a dead writer.
		for range s.ch {
		}
		return
	}
	defer insert.Close()

	for req := range s.ch {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := insert.Exec(req.id, string(req.json), now); err != nil {
			// Retry once after a short pause; sqlite transient lock errors
			// clear quickly under WAL.
			time.Sleep(50 * time.Millisecond)
			_, _ = insert.Exec(req.id, string(req.json), now)
		}
	}
}
