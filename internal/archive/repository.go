// Package archive persists finished games to Postgres. The live record
// lives in the store with a TTL; the archive is the durable trail and is
// strictly best effort from the coordinator's point of view.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"chessrooms/internal/game"
	"chessrooms/internal/oracle"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts one finished game. Re-archiving the same room replaces
// the previous row, so a room whose board reset and finished again keeps
// only its latest result.
func (r *Repository) SaveResult(ctx context.Context, roomID string, rec *game.Record, result, method string) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}

	pgn, err := buildPGN(roomID, rec, result, method, r.now())
	if err != nil {
		return err
	}
	movesRaw, err := json.Marshal(rec.Moves)
	if err != nil {
		return err
	}

	q := `INSERT INTO chess_games (
	    game_id, first_session_id, second_session_id, game_type,
	    rating_parameter, result, result_method, moves_uci, pgn, ended_at
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    first_session_id=EXCLUDED.first_session_id,
	    second_session_id=EXCLUDED.second_session_id,
	    game_type=EXCLUDED.game_type,
	    rating_parameter=EXCLUDED.rating_parameter,
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    moves_uci=EXCLUDED.moves_uci,
	    pgn=EXCLUDED.pgn,
	    ended_at=EXCLUDED.ended_at`

	_, err = r.db.ExecContext(ctx, q,
		roomID,
		rec.FirstSessionID, rec.SecondSessionID,
		string(rec.GameType), rec.RatingParameter,
		strings.TrimSpace(result), strings.TrimSpace(method),
		string(movesRaw), pgn, r.now(),
	)
	return err
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(roomID string, rec *game.Record, result, method string, date time.Time) (string, error) {
	sans, err := oracle.SANLine(rec.Moves)
	if err != nil {
		return "", fmt.Errorf("render pgn for %s: %w", roomID, err)
	}
	pgnResult := mapResultToPGN(result)

	var b strings.Builder
	b.WriteString("[Event \"Online game\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(roomID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.FirstSessionID)))
	black := rec.SecondSessionID
	if black == "" {
		black = string(rec.GameType)
	}
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
	if strings.TrimSpace(method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(method))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(sans); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, sans[i]))
		if i+1 < len(sans) {
			b.WriteString(" ")
			b.WriteString(sans[i+1])
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String(), nil
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
