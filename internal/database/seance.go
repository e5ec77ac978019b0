package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SeanceRecord is one archived séance cycle: the question the circle chose
// and the answer the board spelled out.
type SeanceRecord struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	RoomName     string    `json:"room_name"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	Participants int       `json:"participants"`
	Farewell     bool      `json:"farewell"`
	CompletedAt  time.Time `json:"completed_at"`
}

// InsertSeanceTx archives one cycle within an existing transaction. The
// chronicler uses this to persist the archive row alongside the transcript
// batch it belongs to.
func InsertSeanceTx(ctx context.Context, tx pgx.Tx, rec *SeanceRecord) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate seance id: %w", err)
		}
		rec.ID = id
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	q := `INSERT INTO seances (id, room_id, room_name, question, answer, participants, farewell, completed_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := tx.Exec(ctx, q,
		rec.ID, rec.RoomID, rec.RoomName, rec.Question,
		rec.Answer, rec.Participants, rec.Farewell, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert seance: %w", err)
	}
	return nil
}

func InsertSeance(ctx context.Context, rec *SeanceRecord) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return InsertSeanceTx(ctx, tx, rec)
	})
}

// GetSeancesByRoom returns archived cycles for one room, newest first.
func GetSeancesByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]SeanceRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
	SELECT id, room_id, room_name, question, answer, participants, farewell, completed_at
	FROM seances
	WHERE room_id=$1
	ORDER BY completed_at DESC
	LIMIT $2
	`
	rows, err := DB.Query(ctx, q, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeanceRecord
	for rows.Next() {
		var rec SeanceRecord
		if err := rows.Scan(
			&rec.ID, &rec.RoomID, &rec.RoomName, &rec.Question,
			&rec.Answer, &rec.Participants, &rec.Farewell, &rec.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
