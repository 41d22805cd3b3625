package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchside/server/internal/domain/players"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/metrics"
)

var _ players.Repository = (*PlayerRepository)(nil)

type PlayerRepository struct {
	db *DB
}

const playerColumns = `p.id, p.team_id, tm.name, p.name, p.date_of_birth, p.player_type,
       p.batting_style, p.bowling_style, p.jersey_number, p.contact_info,
       p.stats, p.is_active, p.created_at, p.updated_at`

const playerFrom = `players p JOIN teams tm ON tm.id = p.team_id`

var playerList = listStatement{From: playerFrom, Columns: playerColumns, Tiebreak: "p.id"}

func (r *PlayerRepository) List(ctx context.Context, spec query.Spec) (items []players.Player, total int, err error) {
	defer func(start time.Time) { metrics.RecordQuery("list_players", start, err) }(time.Now())

	q := r.db.queryer(ctx)
	countSQL, pageSQL, params := playerList.Build(spec)
	if err := q.QueryRow(ctx, countSQL, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count players: %w", err)
	}

	rows, err := q.Query(ctx, pageSQL, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	items = []players.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan players: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate players: %w", err)
	}
	return items, total, nil
}

func (r *PlayerRepository) Get(ctx context.Context, id string) (*players.Player, error) {
	return r.one(ctx, `SELECT `+playerColumns+` FROM `+playerFrom+` WHERE p.id = $1`, id)
}

func (r *PlayerRepository) Lock(ctx context.Context, id string) (*players.Player, error) {
	return r.one(ctx, `SELECT `+playerColumns+` FROM `+playerFrom+` WHERE p.id = $1 FOR UPDATE OF p`, id)
}

func (r *PlayerRepository) Create(ctx context.Context, p *players.Player) error {
	cols, err := jsonValues(p.ContactInfo, p.Stats)
	if err != nil {
		return err
	}
	_, err = r.db.queryer(ctx).Exec(ctx, `
INSERT INTO players (id, team_id, name, date_of_birth, player_type, batting_style, bowling_style,
                     jersey_number, contact_info, stats, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID,
		p.TeamID,
		p.Name,
		p.DateOfBirth,
		p.PlayerType,
		p.BattingStyle,
		p.BowlingStyle,
		p.JerseyNumber,
		cols[0],
		cols[1],
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return writeError("insert player", err)
	}
	return nil
}

// Update writes the player's own fields. The team is fixed at creation.
func (r *PlayerRepository) Update(ctx context.Context, p *players.Player) error {
	contact, err := jsonValue(p.ContactInfo)
	if err != nil {
		return err
	}
	tag, err := r.db.queryer(ctx).Exec(ctx, `
UPDATE players
   SET name = $2, date_of_birth = $3, player_type = $4, batting_style = $5,
       bowling_style = $6, jersey_number = $7, contact_info = $8,
       is_active = $9, updated_at = $10
 WHERE id = $1`,
		p.ID,
		p.Name,
		p.DateOfBirth,
		p.PlayerType,
		p.BattingStyle,
		p.BowlingStyle,
		p.JerseyNumber,
		contact,
		p.IsActive,
		p.UpdatedAt,
	)
	if err != nil {
		return writeError("update player", err)
	}
	if tag.RowsAffected() == 0 {
		return players.ErrNotFound
	}
	return nil
}

func (r *PlayerRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return players.ErrNotFound
	}
	return nil
}

func (r *PlayerRepository) SaveStats(ctx context.Context, id string, st players.Stats, at time.Time) error {
	data, err := jsonValue(st)
	if err != nil {
		return err
	}
	tag, err := r.db.queryer(ctx).Exec(ctx, `UPDATE players SET stats = $2, updated_at = $3 WHERE id = $1`, id, data, at)
	if err != nil {
		return fmt.Errorf("save player stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return players.ErrNotFound
	}
	return nil
}

func (r *PlayerRepository) Names(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.db.queryer(ctx).Query(ctx, `SELECT id, name FROM players WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("player names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan player names: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player names: %w", err)
	}
	return names, nil
}

func (r *PlayerRepository) one(ctx context.Context, sql string, id string) (*players.Player, error) {
	p, err := scanPlayer(r.db.queryer(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, players.ErrNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

func scanPlayer(row rowScanner) (players.Player, error) {
	var (
		p       players.Player
		contact []byte
		st      []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.TeamID,
		&p.TeamName,
		&p.Name,
		&p.DateOfBirth,
		&p.PlayerType,
		&p.BattingStyle,
		&p.BowlingStyle,
		&p.JerseyNumber,
		&contact,
		&st,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return players.Player{}, err
	}
	if err := decodeJSON(contact, &p.ContactInfo); err != nil {
		return players.Player{}, err
	}
	if err := decodeJSON(st, &p.Stats); err != nil {
		return players.Player{}, err
	}
	return p, nil
}
