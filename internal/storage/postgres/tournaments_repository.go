package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchside/server/internal/domain/matches"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/tournaments"
	"github.com/pitchside/server/internal/metrics"
)

var (
	_ tournaments.Repository    = (*TournamentRepository)(nil)
	_ matches.TournamentChecker = (*TournamentRepository)(nil)
)

type TournamentRepository struct {
	db *DB
}

const tournamentColumns = `t.id, t.name, t.season, t.description, t.format, t.overs, t.status,
       t.registration_deadline, t.start_date, t.end_date, t.points_system, t.venues,
       t.stages, t.qualification_rules, t.organizer, t.sponsors, t.prize_money,
       t.is_active, t.created_at, t.updated_at`

var tournamentList = listStatement{From: "tournaments t", Columns: tournamentColumns, Tiebreak: "t.id"}

func (r *TournamentRepository) List(ctx context.Context, spec query.Spec) (items []tournaments.Tournament, total int, err error) {
	defer func(start time.Time) { metrics.RecordQuery("list_tournaments", start, err) }(time.Now())

	q := r.db.queryer(ctx)
	countSQL, pageSQL, params := tournamentList.Build(spec)
	if err := q.QueryRow(ctx, countSQL, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tournaments: %w", err)
	}
	items, err = r.query(ctx, pageSQL, params...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *TournamentRepository) Get(ctx context.Context, id string) (*tournaments.Tournament, error) {
	return r.one(ctx, `SELECT `+tournamentColumns+` FROM tournaments t WHERE t.id = $1`, id)
}

func (r *TournamentRepository) Lock(ctx context.Context, id string) (*tournaments.Tournament, error) {
	return r.one(ctx, `SELECT `+tournamentColumns+` FROM tournaments t WHERE t.id = $1 FOR UPDATE`, id)
}

// TournamentExists lets the match service check references without loading
// registrations.
func (r *TournamentRepository) TournamentExists(ctx context.Context, id string) error {
	var exists bool
	err := r.db.queryer(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check tournament: %w", err)
	}
	if !exists {
		return matches.ErrTournamentNotFound
	}
	return nil
}

func (r *TournamentRepository) Create(ctx context.Context, t *tournaments.Tournament) error {
	params, err := tournamentParams(t)
	if err != nil {
		return err
	}
	_, err = r.db.queryer(ctx).Exec(ctx, `
INSERT INTO tournaments (id, name, season, description, format, overs, status,
                         registration_deadline, start_date, end_date, points_system, venues,
                         stages, qualification_rules, organizer, sponsors, prize_money,
                         is_active, updated_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		append(params, t.CreatedAt)...,
	)
	if err != nil {
		return writeError("insert tournament", err)
	}
	for _, entry := range t.Teams {
		if err := r.AddEntry(ctx, t.ID, entry, t.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// Update writes the tournament's own fields. Registrations are left alone.
func (r *TournamentRepository) Update(ctx context.Context, t *tournaments.Tournament) error {
	params, err := tournamentParams(t)
	if err != nil {
		return err
	}
	tag, err := r.db.queryer(ctx).Exec(ctx, `
UPDATE tournaments
   SET name = $2, season = $3, description = $4, format = $5, overs = $6, status = $7,
       registration_deadline = $8, start_date = $9, end_date = $10, points_system = $11,
       venues = $12, stages = $13, qualification_rules = $14, organizer = $15,
       sponsors = $16, prize_money = $17, is_active = $18, updated_at = $19
 WHERE id = $1`,
		params...,
	)
	if err != nil {
		return writeError("update tournament", err)
	}
	if tag.RowsAffected() == 0 {
		return tournaments.ErrNotFound
	}
	return nil
}

// Delete removes the tournament. Registrations and matches cascade.
func (r *TournamentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tournaments.ErrNotFound
	}
	return nil
}

func (r *TournamentRepository) AddEntry(ctx context.Context, tournamentID string, entry tournaments.Registration, at time.Time) error {
	q := r.db.queryer(ctx)
	_, err := q.Exec(ctx, `
INSERT INTO tournament_teams (tournament_id, team_id, status, registration_date)
VALUES ($1, $2, $3, $4)`,
		tournamentID, entry.TeamID, entry.Status, entry.RegistrationDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tournaments.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return r.touch(ctx, tournamentID, at)
}

func (r *TournamentRepository) SetEntryStatus(ctx context.Context, tournamentID, teamID, status string, at time.Time) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `
UPDATE tournament_teams
   SET status = $3
 WHERE tournament_id = $1 AND team_id = $2`,
		tournamentID, teamID, status,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tournaments.ErrNotRegistered
	}
	return r.touch(ctx, tournamentID, at)
}

// Refreshable returns tournaments that are neither cancelled nor completed.
func (r *TournamentRepository) Refreshable(ctx context.Context) ([]tournaments.Tournament, error) {
	return r.query(ctx, `
SELECT `+tournamentColumns+`
  FROM tournaments t
 WHERE t.status NOT IN ('Cancelled', 'Completed')
 ORDER BY t.start_date, t.id`)
}

func (r *TournamentRepository) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `UPDATE tournaments SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return fmt.Errorf("set tournament status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tournaments.ErrNotFound
	}
	return nil
}

func (r *TournamentRepository) touch(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `UPDATE tournaments SET updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tournaments.ErrNotFound
	}
	return nil
}

func (r *TournamentRepository) one(ctx context.Context, sql string, id string) (*tournaments.Tournament, error) {
	t, err := scanTournament(r.db.queryer(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tournaments.ErrNotFound
		}
		return nil, fmt.Errorf("get tournament: %w", err)
	}
	list := []tournaments.Tournament{t}
	if err := r.attachEntries(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *TournamentRepository) query(ctx context.Context, sql string, params ...any) ([]tournaments.Tournament, error) {
	rows, err := r.db.queryer(ctx).Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	items := []tournaments.Tournament{}
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tournaments: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tournaments: %w", err)
	}
	if err := r.attachEntries(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachEntries loads the registrations of every tournament, with team
// names, in one query.
func (r *TournamentRepository) attachEntries(ctx context.Context, list []tournaments.Tournament) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[string]int, len(list))
	tournamentIDs := make([]string, len(list))
	for i := range list {
		index[list[i].ID] = i
		tournamentIDs[i] = list[i].ID
	}

	rows, err := r.db.queryer(ctx).Query(ctx, `
SELECT tt.tournament_id, tt.team_id, tm.name, tt.status, tt.registration_date
  FROM tournament_teams tt
  JOIN teams tm ON tm.id = tt.team_id
 WHERE tt.tournament_id = ANY($1)
 ORDER BY tt.registration_date, tt.team_id`, tournamentIDs)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tournamentID string
		var entry tournaments.Registration
		if err := rows.Scan(&tournamentID, &entry.TeamID, &entry.TeamName, &entry.Status, &entry.RegistrationDate); err != nil {
			return fmt.Errorf("scan registration: %w", err)
		}
		if i, ok := index[tournamentID]; ok {
			list[i].Teams = append(list[i].Teams, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate registrations: %w", err)
	}
	return nil
}

// tournamentParams lists the columns of a write in statement order, ending
// with updated_at.
func tournamentParams(t *tournaments.Tournament) ([]any, error) {
	venues, stages, sponsors := t.Venues, t.Stages, t.Sponsors
	if venues == nil {
		venues = []tournaments.Venue{}
	}
	if stages == nil {
		stages = []tournaments.Stage{}
	}
	if sponsors == nil {
		sponsors = []tournaments.Sponsor{}
	}
	cols, err := jsonValues(t.PointsSystem, venues, stages, t.QualificationRules, t.Organizer, sponsors, t.PrizeMoney)
	if err != nil {
		return nil, err
	}
	return []any{
		t.ID,
		t.Name,
		t.Season,
		t.Description,
		t.Format,
		t.Overs,
		t.Status,
		t.RegistrationDeadline,
		t.StartDate,
		t.EndDate,
		cols[0],
		cols[1],
		cols[2],
		cols[3],
		cols[4],
		cols[5],
		cols[6],
		t.IsActive,
		t.UpdatedAt,
	}, nil
}

func scanTournament(row rowScanner) (tournaments.Tournament, error) {
	var (
		t             tournaments.Tournament
		points        []byte
		venues        []byte
		stages        []byte
		qualification []byte
		organizer     []byte
		sponsors      []byte
		prizes        []byte
	)
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Season,
		&t.Description,
		&t.Format,
		&t.Overs,
		&t.Status,
		&t.RegistrationDeadline,
		&t.StartDate,
		&t.EndDate,
		&points,
		&venues,
		&stages,
		&qualification,
		&organizer,
		&sponsors,
		&prizes,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return tournaments.Tournament{}, err
	}
	for _, col := range []struct {
		data []byte
		dest any
	}{
		{points, &t.PointsSystem},
		{venues, &t.Venues},
		{stages, &t.Stages},
		{qualification, &t.QualificationRules},
		{organizer, &t.Organizer},
		{sponsors, &t.Sponsors},
		{prizes, &t.PrizeMoney},
	} {
		if err := decodeJSON(col.data, col.dest); err != nil {
			return tournaments.Tournament{}, err
		}
	}
	t.Teams = []tournaments.Registration{}
	return t, nil
}
