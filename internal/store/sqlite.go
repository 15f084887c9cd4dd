package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/feltround/holdem/internal/handid"
)

// SQLite is the Store implementation backed by a single sqlite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			money INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			creator_id INTEGER NOT NULL,
			small_blind INTEGER NOT NULL,
			big_blind INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (creator_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS room_players (
			room_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			seat_position INTEGER NOT NULL,
			PRIMARY KEY (room_id, user_id),
			FOREIGN KEY (room_id) REFERENCES rooms(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS game_states (
			room_id INTEGER PRIMARY KEY,
			game_data TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,
		`CREATE TABLE IF NOT EXISTS hand_credits (
			hand_id TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (hand_id, user_id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// User returns the user with the given ID.
func (s *SQLite) User(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, money FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Username, &u.Balance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}
	return &u, nil
}

// Room returns the room with the given ID.
func (s *SQLite) Room(ctx context.Context, id int64) (*Room, error) {
	var r Room
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, creator_id, small_blind, big_blind, is_active FROM rooms WHERE id = ?", id).
		Scan(&r.ID, &r.Name, &r.OwnerID, &r.SmallBlind, &r.BigBlind, &r.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading room %d: %w", id, err)
	}
	return &r, nil
}

// RoomMembers returns a room's roster ordered by seat.
func (s *SQLite) RoomMembers(ctx context.Context, roomID int64) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.money, rp.seat_position
		FROM room_players rp
		JOIN users u ON rp.user_id = u.id
		WHERE rp.room_id = ?
		ORDER BY rp.seat_position`, roomID)
	if err != nil {
		return nil, fmt.Errorf("loading members of room %d: %w", roomID, err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Balance, &m.Seat); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember seats a user in a room. Seating an existing member is a no-op.
func (s *SQLite) AddMember(ctx context.Context, roomID, userID int64, seat int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_players (room_id, user_id, seat_position)
		VALUES (?, ?, ?)
		ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, userID, seat)
	return err
}

// RemoveMember takes a user out of a room's roster.
func (s *SQLite) RemoveMember(ctx context.Context, roomID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM room_players WHERE room_id = ? AND user_id = ?", roomID, userID)
	return err
}

// SetRoomActive flips the in-progress flag on a room.
func (s *SQLite) SetRoomActive(ctx context.Context, roomID int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET is_active = ? WHERE id = ?", active, roomID)
	return err
}

// CreditBalance applies a balance delta once per (handID, userID). The
// ledger insert and the balance update commit together; a replay hits the
// primary key and changes nothing. A malformed hand ID is refused before
// anything touches the ledger.
func (s *SQLite) CreditBalance(ctx context.Context, handID string, userID int64, amount int) error {
	if err := handid.Validate(handID); err != nil {
		return fmt.Errorf("crediting user %d: %w", userID, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO hand_credits (hand_id, user_id, amount)
		VALUES (?, ?, ?)
		ON CONFLICT (hand_id, user_id) DO NOTHING`, handID, userID, amount)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return nil // already applied
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET money = money + ? WHERE id = ?", amount, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSnapshot persists the latest state snapshot for a room.
func (s *SQLite) SaveSnapshot(ctx context.Context, roomID int64, snapshot []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_states (room_id, game_data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (room_id) DO UPDATE SET game_data = excluded.game_data, updated_at = CURRENT_TIMESTAMP`,
		roomID, string(snapshot))
	return err
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
