package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens the database at path and brings its schema up to date.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) CreateItem(ctx context.Context, in Item) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return insertItem(ctx, tx, in)
	})
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id string) (Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, day, start_at, duration_seconds, event_id, state, mesg, note, created_at
		FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	if !item.Recurring() {
		return item, nil
	}
	rules, err := r.loadRules(ctx, id)
	if err != nil {
		return Item{}, err
	}
	exc, err := r.loadExceptions(ctx, id)
	if err != nil {
		return Item{}, err
	}
	item.Rule = rules[id]
	item.Exceptions = exc[id]
	return item, nil
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM recurrence_exceptions WHERE item_id = ?`,
			`DELETE FROM recurrence_rules WHERE item_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return checkRowsAffected(res)
	})
}

func (r *SQLiteRepository) ListItems(ctx context.Context, filter ItemListFilter) ([]Item, error) {
	query := `SELECT id, kind, day, start_at, duration_seconds, event_id, state, mesg, note, created_at FROM items`
	args := make([]any, 0, 3)
	if filter.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, filter.Kind)
	}
	query += ` ORDER BY kind, COALESCE(day, start_at), rowid`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rules, err := r.loadRules(ctx, "")
	if err != nil {
		return nil, err
	}
	exc, err := r.loadExceptions(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Recurring() {
			out[i].Rule = rules[out[i].ID]
			out[i].Exceptions = exc[out[i].ID]
		}
	}
	return out, nil
}

func (r *SQLiteRepository) ReplaceItems(ctx context.Context, items []Item) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"recurrence_exceptions", "recurrence_rules", "items"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, it := range items {
			if err := insertItem(ctx, tx, it); err != nil {
				return fmt.Errorf("insert item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertItem(ctx context.Context, db execer, in Item) error {
	if in.Recurring() && in.Rule == nil {
		return fmt.Errorf("storage: recurring item %s without rule", in.ID)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO items (id, kind, day, start_at, duration_seconds, event_id, state, mesg, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Kind, nullString(in.Day), nullTime(in.StartAt), int64(in.Duration/time.Second),
		in.EventID, in.State, in.Mesg, in.Note, mustTime(in.CreatedAt),
	)
	if err != nil {
		return err
	}
	if !in.Recurring() {
		return nil
	}
	rule := in.Rule
	if _, err := db.ExecContext(ctx, `
		INSERT INTO recurrence_rules (item_id, rule_type, interval_value, until_day, by_month, by_weekday, by_month_day)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, rule.Type, rule.Interval, nullString(rule.UntilDay),
		joinInts(rule.ByMonth), joinInts(rule.ByWeekday), joinInts(rule.ByMonthDay),
	); err != nil {
		return err
	}
	for _, day := range in.Exceptions {
		if _, err := db.ExecContext(ctx, `
			INSERT OR IGNORE INTO recurrence_exceptions (item_id, day) VALUES (?, ?)`, in.ID, day); err != nil {
			return err
		}
	}
	return nil
}

// loadRules returns the rules of every recurring item, or only of id when
// it is non-empty.
func (r *SQLiteRepository) loadRules(ctx context.Context, id string) (map[string]*Rule, error) {
	query := `SELECT item_id, rule_type, interval_value, until_day, by_month, by_weekday, by_month_day FROM recurrence_rules`
	var args []any
	if id != "" {
		query += ` WHERE item_id = ?`
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*Rule)
	for rows.Next() {
		var itemID, months, wdays, mdays string
		var rule Rule
		var until sql.NullString
		if err := rows.Scan(&itemID, &rule.Type, &rule.Interval, &until, &months, &wdays, &mdays); err != nil {
			return nil, err
		}
		rule.UntilDay = until.String
		if rule.ByMonth, err = splitInts(months); err != nil {
			return nil, fmt.Errorf("rule %s by_month: %w", itemID, err)
		}
		if rule.ByWeekday, err = splitInts(wdays); err != nil {
			return nil, fmt.Errorf("rule %s by_weekday: %w", itemID, err)
		}
		if rule.ByMonthDay, err = splitInts(mdays); err != nil {
			return nil, fmt.Errorf("rule %s by_month_day: %w", itemID, err)
		}
		out[itemID] = &rule
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadExceptions(ctx context.Context, id string) (map[string][]string, error) {
	query := `SELECT item_id, day FROM recurrence_exceptions`
	var args []any
	if id != "" {
		query += ` WHERE item_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY item_id, day`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var itemID, day string
		if err := rows.Scan(&itemID, &day); err != nil {
			return nil, err
		}
		out[itemID] = append(out[itemID], day)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func splitInts(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (Item, error) {
	var out Item
	var day, start sql.NullString
	var durSeconds int64
	var created string
	if err := s.Scan(&out.ID, &out.Kind, &day, &start, &durSeconds, &out.EventID, &out.State, &out.Mesg, &out.Note, &created); err != nil {
		return Item{}, err
	}
	startAt, err := parseNullableTime(start)
	if err != nil {
		return Item{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Item{}, err
	}
	out.Day = day.String
	out.StartAt = startAt
	out.Duration = time.Duration(durSeconds) * time.Second
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
