package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ToggleFavorite flips the favorite membership of the record at position.
// The record must exist; otherwise the call fails with NotFound and the
// favorites table is left untouched.
func (s *Store) ToggleFavorite(ctx context.Context, t Table, position int64) (Toggle, error) {
	const op = "toggle favorite"
	q, err := t.statements()
	if err != nil {
		return 0, err
	}
	if position < 0 {
		return 0, notFound(op, t, position)
	}

	var result Toggle
	err = s.withTx(ctx, op, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, q.get, position).Scan(&exists, new(string), new(string), new(string))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(op, t, position)
		}
		if err != nil {
			return fmt.Errorf("lookup record: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			"DELETE FROM favorites WHERE table_name = ? AND position = ?", t.String(), position)
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			result = Removed
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO favorites (table_name, position) VALUES (?, ?)", t.String(), position,
		); err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		result = Added
		return nil
	})
	if err != nil {
		return 0, s.storeErr(op, err)
	}
	return result, nil
}

// FavoritesAfter returns up to limit favorite records of t whose position is
// greater than after, ordered by position. Pass -1 to start from the
// beginning. Favorites are joined against the record table, so a favorite
// whose record is gone is never returned.
func (s *Store) FavoritesAfter(ctx context.Context, t Table, after int64, limit int) ([]Record, error) {
	const op = "list favorites"
	q, err := t.statements()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	var recs []Record
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q.favoritesAfter, t.String(), after, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		recs, err = scanRecords(rows)
		return err
	})
	if err != nil {
		return nil, s.storeErr(op, err)
	}
	return recs, nil
}

// IsFavorite reports whether the record at position is a favorite. A
// favorite row without a matching record does not count.
func (s *Store) IsFavorite(ctx context.Context, t Table, position int64) (bool, error) {
	const op = "is favorite"
	q, err := t.statements()
	if err != nil {
		return false, err
	}
	var n int
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, q.isFavorite, t.String(), position).Scan(&n)
	})
	if err != nil {
		return false, s.storeErr(op, err)
	}
	return n > 0, nil
}
