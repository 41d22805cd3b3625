package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/metrics"
)

var _ matches.Repository = (*MatchRepository)(nil)

type MatchRepository struct {
	db *DB
}

const matchColumns = `m.id, m.match_number, m.match_type, m.tournament_id, m.team1_id, m.team2_id,
       m.venue, m.start_date, m.end_date, m.toss, m.overs, m.status, m.innings,
       m.result, m.umpires, m.weather, m.highlights, m.is_active, m.created_at, m.updated_at`

var matchList = listStatement{From: "matches m", Columns: matchColumns, Tiebreak: "m.id"}

func (r *MatchRepository) List(ctx context.Context, spec query.Spec) (items []matches.Match, total int, err error) {
	defer func(start time.Time) { metrics.RecordQuery("list_matches", start, err) }(time.Now())

	q := r.db.queryer(ctx)
	countSQL, pageSQL, params := matchList.Build(spec)
	if err := q.QueryRow(ctx, countSQL, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}

	rows, err := q.Query(ctx, pageSQL, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items = []matches.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan matches: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate matches: %w", err)
	}
	return items, total, nil
}

func (r *MatchRepository) Get(ctx context.Context, id string) (*matches.Match, error) {
	return r.one(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1`, id)
}

func (r *MatchRepository) Lock(ctx context.Context, id string) (*matches.Match, error) {
	return r.one(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id = $1 FOR UPDATE`, id)
}

func (r *MatchRepository) Create(ctx context.Context, m *matches.Match) error {
	params, err := matchParams(m)
	if err != nil {
		return err
	}
	_, err = r.db.queryer(ctx).Exec(ctx, `
INSERT INTO matches (id, match_number, match_type, tournament_id, team1_id, team2_id, venue,
                     start_date, end_date, toss, overs, status, innings, result, umpires,
                     weather, highlights, is_active, updated_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		append(params, m.CreatedAt)...,
	)
	if err != nil {
		return writeError("insert match", err)
	}
	return nil
}

func (r *MatchRepository) Update(ctx context.Context, m *matches.Match) error {
	params, err := matchParams(m)
	if err != nil {
		return err
	}
	tag, err := r.db.queryer(ctx).Exec(ctx, `
UPDATE matches
   SET match_number = $2, match_type = $3, tournament_id = $4, team1_id = $5, team2_id = $6,
       venue = $7, start_date = $8, end_date = $9, toss = $10, overs = $11, status = $12,
       innings = $13, result = $14, umpires = $15, weather = $16, highlights = $17,
       is_active = $18, updated_at = $19
 WHERE id = $1`,
		params...,
	)
	if err != nil {
		return writeError("update match", err)
	}
	if tag.RowsAffected() == 0 {
		return matches.ErrNotFound
	}
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return matches.ErrNotFound
	}
	return nil
}

// Innings returns the innings of every match in the tournament in schedule
// order. Matches still in progress are included so leaderboards move during
// play.
func (r *MatchRepository) Innings(ctx context.Context, tournamentID string) ([]stats.Innings, error) {
	rows, err := r.db.queryer(ctx).Query(ctx, `
SELECT m.innings
  FROM matches m
 WHERE m.tournament_id = $1
 ORDER BY m.start_date, m.id`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("tournament innings: %w", err)
	}
	defer rows.Close()

	var out []stats.Innings
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan innings: %w", err)
		}
		var innings []stats.Innings
		if err := decodeJSON(data, &innings); err != nil {
			return nil, err
		}
		out = append(out, innings...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate innings: %w", err)
	}
	return out, nil
}

func (r *MatchRepository) StatusCounts(ctx context.Context, tournamentID string) (map[string]int, error) {
	rows, err := r.db.queryer(ctx).Query(ctx, `
SELECT m.status, count(*)
  FROM matches m
 WHERE m.tournament_id = $1
 GROUP BY m.status`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("match status counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status counts: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (r *MatchRepository) one(ctx context.Context, sql string, id string) (*matches.Match, error) {
	m, err := scanMatch(r.db.queryer(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, matches.ErrNotFound
		}
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &m, nil
}

// matchParams lists the columns of a write in statement order, ending with
// updated_at.
func matchParams(m *matches.Match) ([]any, error) {
	cols, err := jsonValues(m.Venue, m.Toss, m.Innings, m.Result, m.Umpires, m.Weather)
	if err != nil {
		return nil, err
	}
	if m.Innings == nil {
		cols[2] = []byte("[]")
	}
	if m.Umpires == nil {
		cols[4] = []byte("[]")
	}
	highlights := m.Highlights
	if highlights == nil {
		highlights = []string{}
	}
	return []any{
		m.ID,
		m.MatchNumber,
		m.MatchType,
		nullString(m.TournamentID),
		m.Teams.Team1,
		m.Teams.Team2,
		cols[0],
		m.Schedule.StartDate,
		m.Schedule.EndDate,
		cols[1],
		m.Overs,
		m.Status,
		cols[2],
		cols[3],
		cols[4],
		cols[5],
		highlights,
		m.IsActive,
		m.UpdatedAt,
	}, nil
}

func scanMatch(row rowScanner) (matches.Match, error) {
	var (
		m            matches.Match
		tournamentID *string
		venue        []byte
		toss         []byte
		innings      []byte
		result       []byte
		umpires      []byte
		weather      []byte
	)
	if err := row.Scan(
		&m.ID,
		&m.MatchNumber,
		&m.MatchType,
		&tournamentID,
		&m.Teams.Team1,
		&m.Teams.Team2,
		&venue,
		&m.Schedule.StartDate,
		&m.Schedule.EndDate,
		&toss,
		&m.Overs,
		&m.Status,
		&innings,
		&result,
		&umpires,
		&weather,
		&m.Highlights,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return matches.Match{}, err
	}
	m.TournamentID = derefString(tournamentID)
	for _, col := range []struct {
		data []byte
		dest any
	}{
		{venue, &m.Venue},
		{toss, &m.Toss},
		{innings, &m.Innings},
		{result, &m.Result},
		{umpires, &m.Umpires},
		{weather, &m.Weather},
	} {
		if err := decodeJSON(col.data, col.dest); err != nil {
			return matches.Match{}, err
		}
	}
	if m.Innings == nil {
		m.Innings = []stats.Innings{}
	}
	if m.Umpires == nil {
		m.Umpires = []matches.Umpire{}
	}
	m.Derive()
	return m, nil
}
