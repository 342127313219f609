package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"portfolioFrontier/internal/portfolio"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs(
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		tickers TEXT NOT NULL,
		trials INTEGER NOT NULL,
		valid_trials INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		start_date INTEGER NOT NULL,
		end_date INTEGER NOT NULL,
		optimal BLOB NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS price_cache(
		cache_key TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// Run is the persisted summary of one optimization run.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Tickers     []string
	Trials      int
	ValidTrials int
	Seed        uint64
	Start       time.Time
	End         time.Time
	Optimal     portfolio.OptimalSet
}

func (s *Store) SaveRun(r Run) error {
	blob, err := msgpack.Marshal(r.Optimal)
	if err != nil {
		return fmt.Errorf("encode optimal set: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO runs(id,created_at,tickers,trials,valid_trials,seed,start_date,end_date,optimal)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		r.ID, r.CreatedAt.Unix(), strings.Join(r.Tickers, ","), r.Trials, r.ValidTrials,
		int64(r.Seed), r.Start.Unix(), r.End.Unix(), blob)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id,created_at,tickers,trials,valid_trials,seed,start_date,end_date,optimal
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                           Run
			created, start, end, seed64 int64
			tickers                     string
			blob                        []byte
		)
		if err := rows.Scan(&r.ID, &created, &tickers, &r.Trials, &r.ValidTrials, &seed64, &start, &end, &blob); err != nil {
			return nil, err
		}
		if err := msgpack.Unmarshal(blob, &r.Optimal); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		r.Start = time.Unix(start, 0).UTC()
		r.End = time.Unix(end, 0).UTC()
		r.Seed = uint64(seed64)
		if tickers != "" {
			r.Tickers = strings.Split(tickers, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type priceRecord struct {
	Dates  []int64     `msgpack:"d"`
	Assets []string    `msgpack:"a"`
	Prices [][]float64 `msgpack:"p"`
}

// LoadPrices returns the cached table for key when it is younger than maxAge.
func (s *Store) LoadPrices(key string, maxAge time.Duration) (*portfolio.PriceTable, bool, error) {
	var fetched int64
	var blob []byte
	err := s.db.QueryRow(`SELECT fetched_at,payload FROM price_cache WHERE cache_key=?`, key).Scan(&fetched, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if maxAge > 0 && time.Since(time.Unix(fetched, 0)) > maxAge {
		return nil, false, nil
	}

	var rec priceRecord
	if err := msgpack.Unmarshal(blob, &rec); err != nil {
		return nil, false, fmt.Errorf("decode prices %s: %w", key, err)
	}
	dates := make([]time.Time, len(rec.Dates))
	for i, d := range rec.Dates {
		dates[i] = time.Unix(d, 0).UTC()
	}
	table, err := portfolio.NewPriceTable(dates, rec.Assets, rec.Prices)
	if err != nil {
		return nil, false, fmt.Errorf("cached prices %s: %w", key, err)
	}
	return table, true, nil
}

func (s *Store) SavePrices(key string, table *portfolio.PriceTable) error {
	rec := priceRecord{Assets: table.Assets, Prices: table.Prices}
	for _, d := range table.Dates {
		rec.Dates = append(rec.Dates, d.Unix())
	}
	blob, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO price_cache(cache_key,fetched_at,payload) VALUES(?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET fetched_at=excluded.fetched_at, payload=excluded.payload`,
		key, time.Now().Unix(), blob)
	return err
}
