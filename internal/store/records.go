package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// GetRecord returns the record at position in table t.
// A negative or unknown position fails with NotFound.
func (s *Store) GetRecord(ctx context.Context, t Table, position int64) (Record, error) {
	const op = "get record"
	q, err := t.statements()
	if err != nil {
		return Record{}, err
	}
	if position < 0 {
		return Record{}, notFound(op, t, position)
	}

	var rec Record
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, q.get, position).
			Scan(&rec.Position, &rec.Name, &rec.Tel, &rec.Address)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(op, t, position)
	}
	if err != nil {
		return Record{}, s.storeErr(op, err)
	}
	return rec, nil
}

// InsertRecord appends rec to table t at the next unissued position and
// returns that position. rec.Position is ignored.
func (s *Store) InsertRecord(ctx context.Context, t Table, rec Record) (int64, error) {
	const op = "insert record"
	if _, err := t.statements(); err != nil {
		return 0, err
	}
	var pos int64
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		var err error
		pos, err = insertRecordTx(ctx, tx, t, rec)
		return err
	})
	if err != nil {
		return 0, s.storeErr(op, err)
	}
	return pos, nil
}

// InsertRecordAt inserts rec at rec.Position. The position must not have
// been issued before in t, even if the record holding it was deleted.
func (s *Store) InsertRecordAt(ctx context.Context, t Table, rec Record) error {
	const op = "insert record at"
	if _, err := t.statements(); err != nil {
		return err
	}
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		return insertRecordAtTx(ctx, tx, t, rec)
	})
	return s.storeErr(op, err)
}

// DeleteRecord removes the record at position and any favorite that
// references it, in one transaction. The position is never reissued.
func (s *Store) DeleteRecord(ctx context.Context, t Table, position int64) error {
	const op = "delete record"
	q, err := t.statements()
	if err != nil {
		return err
	}
	err = s.withTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q.delete, position)
		if err != nil {
			return fmt.Errorf("delete row: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return notFound(op, t, position)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM favorites WHERE table_name = ? AND position = ?", t.String(), position,
		); err != nil {
			return fmt.Errorf("delete favorite: %w", err)
		}
		return nil
	})
	return s.storeErr(op, err)
}

// DeleteRecords removes every listed position that exists, together with
// their favorites, in one transaction. Missing positions are skipped.
// Returns the number of records removed.
func (s *Store) DeleteRecords(ctx context.Context, t Table, positions []int64) (int, error) {
	const op = "delete records"
	q, err := t.statements()
	if err != nil {
		return 0, err
	}
	if len(positions) == 0 {
		return 0, nil
	}
	placeholders := placeholderList(len(positions))
	args := int64sToArgs(positions)

	var removed int64
	err = s.withTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q.deleteMany+placeholders+")", args...)
		if err != nil {
			return fmt.Errorf("delete rows: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		favArgs := append([]any{t.String()}, args...)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM favorites WHERE table_name = ? AND position IN ("+placeholders+")", favArgs...,
		); err != nil {
			return fmt.Errorf("delete favorites: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, s.storeErr(op, err)
	}
	return int(removed), nil
}

// ListRecords returns one page of table t ordered by position.
func (s *Store) ListRecords(ctx context.Context, t Table, page Pagination) (PagedResult[Record], error) {
	const op = "list records"
	q, err := t.statements()
	if err != nil {
		return PagedResult[Record]{}, err
	}
	page = page.normalize()

	var result PagedResult[Record]
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, q.count).Scan(&result.TotalCount); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		rows, err := conn.QueryContext(ctx, q.list, page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		result.Items, err = scanRecords(rows)
		return err
	})
	if err != nil {
		return PagedResult[Record]{}, s.storeErr(op, err)
	}
	return result, nil
}

// CountRecords returns the number of records in table t.
func (s *Store) CountRecords(ctx context.Context, t Table) (int, error) {
	const op = "count records"
	q, err := t.statements()
	if err != nil {
		return 0, err
	}
	var n int
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, q.count).Scan(&n)
	})
	if err != nil {
		return 0, s.storeErr(op, err)
	}
	return n, nil
}

// nextPositionTx reads the position sequence for t inside tx.
func nextPositionTx(ctx context.Context, tx *sql.Tx, t Table) (int64, error) {
	var next int64
	err := tx.QueryRowContext(ctx,
		"SELECT next_position FROM position_seq WHERE table_name = ?", t.String(),
	).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read position sequence: %w", err)
	}
	return next, nil
}

func setNextPositionTx(ctx context.Context, tx *sql.Tx, t Table, next int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO position_seq (table_name, next_position) VALUES (?, ?)
		 ON CONFLICT(table_name) DO UPDATE SET next_position = excluded.next_position`,
		t.String(), next,
	)
	if err != nil {
		return fmt.Errorf("advance position sequence: %w", err)
	}
	return nil
}

func insertRecordTx(ctx context.Context, tx *sql.Tx, t Table, rec Record) (int64, error) {
	next, err := nextPositionTx(ctx, tx, t)
	if err != nil {
		return 0, err
	}
	rec.Position = next
	if err := insertRowTx(ctx, tx, t, rec); err != nil {
		return 0, err
	}
	return next, nil
}

func insertRecordAtTx(ctx context.Context, tx *sql.Tx, t Table, rec Record) error {
	if rec.Position < 0 || rec.Position > MaxPosition {
		return fmt.Errorf("%w: %s position %d", ErrPositionRange, t, rec.Position)
	}
	next, err := nextPositionTx(ctx, tx, t)
	if err != nil {
		return err
	}
	if rec.Position < next {
		return fmt.Errorf("%w: %s position %d (next is %d)", ErrPositionIssued, t, rec.Position, next)
	}
	return insertRowTx(ctx, tx, t, rec)
}

// insertRowTx writes rec and advances the sequence past its position.
func insertRowTx(ctx context.Context, tx *sql.Tx, t Table, rec Record) error {
	q, err := t.statements()
	if err != nil {
		return err
	}
	if rec.Name == "" {
		return fmt.Errorf("%s position %d: name is required", t, rec.Position)
	}
	if rec.Position > MaxPosition {
		return fmt.Errorf("%w: %s is full", ErrPositionRange, t)
	}
	if _, err := tx.ExecContext(ctx, q.insert, rec.Position, rec.Name, rec.Tel, rec.Address); err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return setNextPositionTx(ctx, tx, t, rec.Position+1)
}

// MaxPosition is the highest position a record can hold. The sequence stores
// the position after it, so it must stay representable.
const MaxPosition int64 = math.MaxInt64 - 1

var (
	// ErrPositionIssued is returned when an explicit position was already handed out.
	ErrPositionIssued = errors.New("position already issued")
	// ErrPositionRange is returned for positions outside 0..MaxPosition.
	ErrPositionRange = errors.New("position out of range")
)

// scanRecords drains rows into a slice and closes them.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Position, &rec.Name, &rec.Tel, &rec.Address); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
