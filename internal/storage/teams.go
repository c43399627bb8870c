package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
)

// TeamRepo 竞技场队伍表
type TeamRepo struct {
	sqlStore
}

// NewTeamRepo 创建队伍仓库
func NewTeamRepo(conn *sql.DB, driver string) *TeamRepo {
	return &TeamRepo{sqlStore{db: conn, driver: driver}}
}

// Upsert 保存队伍，每个用户每种类型一支
func (r *TeamRepo) Upsert(ctx context.Context, team models.ArenaTeam) error {
	squad, err := json.Marshal(team.Squad)
	if err != nil {
		return fmt.Errorf("序列化队伍失败: %w", err)
	}

	query := r.q(`INSERT INTO arena_teams (user_id, team_type, squad_json, power, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, team_type)
		DO UPDATE SET squad_json = excluded.squad_json, power = excluded.power, updated_at = CURRENT_TIMESTAMP`)
	if _, err := r.db.ExecContext(ctx, query, team.UserID, string(team.Type), string(squad), team.Power); err != nil {
		return fmt.Errorf("保存队伍失败: %w", err)
	}
	return nil
}

// ListByUser 获取用户的全部队伍
func (r *TeamRepo) ListByUser(ctx context.Context, userID int64) ([]models.ArenaTeam, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT team_type, squad_json, power, updated_at FROM arena_teams WHERE user_id = ? ORDER BY team_type`), userID)
	if err != nil {
		return nil, fmt.Errorf("查询队伍失败: %w", err)
	}
	defer rows.Close()

	teams := []models.ArenaTeam{}
	for rows.Next() {
		var (
			t       models.ArenaTeam
			typ     string
			raw     string
			updated interface{}
		)
		if err := rows.Scan(&typ, &raw, &t.Power, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &t.Squad); err != nil {
			log.Printf("用户 %d 的队伍数据损坏: %v", userID, err)
			continue
		}
		t.UserID = userID
		t.Type = models.TeamType(typ)
		t.UpdatedAt, _ = parseTime(updated)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// DefenseTeams 获取除指定用户外的所有防守队伍
func (r *TeamRepo) DefenseTeams(ctx context.Context, excludeUserID int64) ([]models.Opponent, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT u.id, u.username, u.elo, t.power, t.squad_json
		FROM arena_teams t JOIN users u ON u.id = t.user_id
		WHERE t.team_type = ? AND t.user_id <> ?
		ORDER BY u.id`), string(models.TeamDefense), excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("查询防守队伍失败: %w", err)
	}
	defer rows.Close()

	return scanOpponents(rows)
}

// DefenseTeam 获取指定用户的防守队伍
func (r *TeamRepo) DefenseTeam(ctx context.Context, userID int64) (*models.Opponent, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT u.id, u.username, u.elo, t.power, t.squad_json
		FROM arena_teams t JOIN users u ON u.id = t.user_id
		WHERE t.team_type = ? AND t.user_id = ?`), string(models.TeamDefense), userID)
	if err != nil {
		return nil, fmt.Errorf("查询防守队伍失败: %w", err)
	}
	defer rows.Close()

	opps, err := scanOpponents(rows)
	if err != nil {
		return nil, err
	}
	if len(opps) == 0 {
		return nil, ErrNotFound
	}
	return &opps[0], nil
}

func scanOpponents(rows *sql.Rows) ([]models.Opponent, error) {
	opps := []models.Opponent{}
	for rows.Next() {
		var (
			o   models.Opponent
			raw string
		)
		if err := rows.Scan(&o.UserID, &o.Username, &o.Elo, &o.Power, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &o.Squad); err != nil {
			log.Printf("用户 %d 的防守队伍数据损坏: %v", o.UserID, err)
			continue
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}
