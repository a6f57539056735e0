package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridquest.gg/internal/sim/engine"
)

// SQLite journals processed commands and per-player replay watermarks. Writes
// are buffered through a single writer goroutine; the engine never blocks on
// the database.
type SQLite struct {
	db *sql.DB

	ch   chan engine.CommandRecord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*SQLite, error) {
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

	j := &SQLite{
		db: db,
		// Sized for command bursts; the JSONL log is the source of truth if
		// the journal falls behind.
		ch: make(chan engine.CommandRecord, 65536),
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL is enough durability for a
	// secondary store behind the JSONL log.
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
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at_ms INTEGER NOT NULL,
			player TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT,
			status TEXT NOT NULL,
			reason TEXT,
			txid TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_player_seq ON commands(player, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_txid ON commands(txid) WHERE txid IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS watermarks (
			player TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			updated_ms INTEGER NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (j *SQLite) Close() error {
	var err error
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}

// WriteStatus enqueues one record. Never blocks; drops if the writer is
// saturated.
func (j *SQLite) WriteStatus(rec engine.CommandRecord) error {
	if j == nil || j.closed.Load() {
		return nil
	}
	select {
	case j.ch <- rec:
	default:
	}
	return nil
}

// Watermarks loads the persisted replay watermarks for engine restore.
func (j *SQLite) Watermarks(ctx context.Context) (map[string]uint64, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT player, seq FROM watermarks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := map[string]uint64{}
	for rows.Next() {
		var player string
		var seq int64
		if err := rows.Scan(&player, &seq); err != nil {
			return nil, err
		}
		if seq > 0 {
			marks[player] = uint64(seq)
		}
	}
	return marks, rows.Err()
}

func (j *SQLite) loop() {
	ctx := context.Background()

	insertCmd, _ := j.db.Prepare(`INSERT INTO commands(at_ms,player,seq,kind,status,reason,txid) VALUES(?,?,?,?,?,?,?)`)
	upsertMark, _ := j.db.Prepare(`INSERT INTO watermarks(player,seq,updated_ms) VALUES(?,?,?)
		ON CONFLICT(player) DO UPDATE SET seq=excluded.seq, updated_ms=excluded.updated_ms
		WHERE excluded.seq > watermarks.seq`)
	defer func() {
		if insertCmd != nil {
			_ = insertCmd.Close()
		}
		if upsertMark != nil {
			_ = upsertMark.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 512
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for rec := range j.ch {
		begin()
		if tx == nil {
			continue
		}
		if insertCmd != nil {
			if _, err := tx.Stmt(insertCmd).Exec(
				rec.AtMs,
				rec.Player,
				int64(rec.Seq),
				nullStr(rec.Kind),
				rec.Status,
				nullStr(rec.Reason),
				nullStr(rec.Txid),
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if upsertMark != nil && rec.Player != "" {
			if _, err := tx.Stmt(upsertMark).Exec(rec.Player, int64(rec.Seq), rec.AtMs); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
		// Commit promptly when the queue drains so watermarks stay fresh.
		if len(j.ch) == 0 {
			commit()
		}
	}
	commit()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
