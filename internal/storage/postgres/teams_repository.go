package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/domain/stats"
	"github.com/pitchside/server/internal/domain/teams"
	"github.com/pitchside/server/internal/metrics"
)

var _ teams.Repository = (*TeamRepository)(nil)

type TeamRepository struct {
	db *DB
}

const teamColumns = `t.id, t.name, t.short_name, t.logo, t.home_ground,
       t.manager_name, t.manager_contact, t.manager_user_id,
       t.coach, t.stats, t.is_active, t.created_at, t.updated_at`

var teamList = listStatement{From: "teams t", Columns: teamColumns, Tiebreak: "t.id"}

func (r *TeamRepository) List(ctx context.Context, spec query.Spec) (items []teams.Team, total int, err error) {
	defer func(start time.Time) { metrics.RecordQuery("list_teams", start, err) }(time.Now())

	q := r.db.queryer(ctx)
	countSQL, pageSQL, params := teamList.Build(spec)
	if err := q.QueryRow(ctx, countSQL, params...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}

	items, err = r.query(ctx, pageSQL, params...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *TeamRepository) Get(ctx context.Context, id string) (*teams.Team, error) {
	return r.one(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, id)
}

func (r *TeamRepository) Lock(ctx context.Context, id string) (*teams.Team, error) {
	return r.one(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1 FOR UPDATE`, id)
}

func (r *TeamRepository) GetMany(ctx context.Context, ids []string) ([]teams.Team, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = ANY($1) ORDER BY t.name`, ids)
}

func (r *TeamRepository) Create(ctx context.Context, team *teams.Team) error {
	cols, err := jsonValues(team.Coach, team.Stats)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = r.db.queryer(ctx).Exec(ctx, `
INSERT INTO teams (id, name, short_name, logo, home_ground, manager_name, manager_contact,
                   manager_user_id, coach, stats, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		team.ID,
		team.Name,
		team.ShortName,
		team.Logo,
		team.HomeGround,
		team.Manager.Name,
		team.Manager.Contact,
		nullString(team.Manager.UserID),
		cols[0],
		cols[1],
		team.IsActive,
		team.CreatedAt,
		team.UpdatedAt,
	)
	metrics.RecordQuery("insert_team", start, err)
	if err != nil {
		return writeError("insert team", err)
	}
	return nil
}

func (r *TeamRepository) Update(ctx context.Context, team *teams.Team) error {
	cols, err := jsonValues(team.Coach, team.Stats)
	if err != nil {
		return err
	}
	tag, err := r.db.queryer(ctx).Exec(ctx, `
UPDATE teams
   SET name = $2, short_name = $3, logo = $4, home_ground = $5,
       manager_name = $6, manager_contact = $7, manager_user_id = $8,
       coach = $9, stats = $10, is_active = $11, updated_at = $12
 WHERE id = $1`,
		team.ID,
		team.Name,
		team.ShortName,
		team.Logo,
		team.HomeGround,
		team.Manager.Name,
		team.Manager.Contact,
		nullString(team.Manager.UserID),
		cols[0],
		cols[1],
		team.IsActive,
		team.UpdatedAt,
	)
	if err != nil {
		return writeError("update team", err)
	}
	if tag.RowsAffected() == 0 {
		return teams.ErrNotFound
	}
	return nil
}

// Delete removes the team. Its players go with it through the foreign key.
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return teams.ErrNotFound
	}
	return nil
}

func (r *TeamRepository) Touch(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.queryer(ctx).Exec(ctx, `UPDATE teams SET updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return teams.ErrNotFound
	}
	return nil
}

func (r *TeamRepository) SaveStats(ctx context.Context, id string, st stats.TeamStats, at time.Time) error {
	data, err := jsonValue(st)
	if err != nil {
		return err
	}
	tag, err := r.db.queryer(ctx).Exec(ctx, `UPDATE teams SET stats = $2, updated_at = $3 WHERE id = $1`, id, data, at)
	if err != nil {
		return fmt.Errorf("save team stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return teams.ErrNotFound
	}
	return nil
}

func (r *TeamRepository) one(ctx context.Context, sql string, id string) (*teams.Team, error) {
	team, err := scanTeam(r.db.queryer(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, teams.ErrNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	list := []teams.Team{team}
	if err := r.attachRosters(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *TeamRepository) query(ctx context.Context, sql string, params ...any) ([]teams.Team, error) {
	rows, err := r.db.queryer(ctx).Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	items := []teams.Team{}
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan teams: %w", err)
		}
		items = append(items, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	if err := r.attachRosters(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachRosters loads the players of every team in one query.
func (r *TeamRepository) attachRosters(ctx context.Context, list []teams.Team) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[string]int, len(list))
	teamIDs := make([]string, len(list))
	for i := range list {
		index[list[i].ID] = i
		teamIDs[i] = list[i].ID
	}

	rows, err := r.db.queryer(ctx).Query(ctx, `
SELECT p.team_id, p.id, p.name, p.player_type
  FROM players p
 WHERE p.team_id = ANY($1)
 ORDER BY p.name, p.id`, teamIDs)
	if err != nil {
		return fmt.Errorf("list rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID string
		var m teams.Member
		if err := rows.Scan(&teamID, &m.ID, &m.Name, &m.PlayerType); err != nil {
			return fmt.Errorf("scan roster: %w", err)
		}
		if i, ok := index[teamID]; ok {
			list[i].Players = append(list[i].Players, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rosters: %w", err)
	}
	return nil
}

func scanTeam(row rowScanner) (teams.Team, error) {
	var (
		team   teams.Team
		userID *string
		coach  []byte
		st     []byte
	)
	if err := row.Scan(
		&team.ID,
		&team.Name,
		&team.ShortName,
		&team.Logo,
		&team.HomeGround,
		&team.Manager.Name,
		&team.Manager.Contact,
		&userID,
		&coach,
		&st,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return teams.Team{}, err
	}
	team.Manager.UserID = derefString(userID)
	team.Players = []teams.Member{}
	if err := decodeJSON(coach, &team.Coach); err != nil {
		return teams.Team{}, err
	}
	if err := decodeJSON(st, &team.Stats); err != nil {
		return teams.Team{}, err
	}
	return team, nil
}
