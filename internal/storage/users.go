package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
)

// UserRepo 账号表
type UserRepo struct {
	sqlStore
	defaultElo int
}

// NewUserRepo 创建账号仓库
func NewUserRepo(conn *sql.DB, driver string, defaultElo int) *UserRepo {
	return &UserRepo{sqlStore: sqlStore{db: conn, driver: driver}, defaultElo: defaultElo}
}

// Create 注册账号，用户名重复时返回ErrUsernameTaken
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	u := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Elo:          r.defaultElo,
		CreatedAt:    now,
	}

	query := r.q(`INSERT INTO users (username, password_hash, elo, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowContext(ctx, query, username, passwordHash, u.Elo, now).Scan(&u.ID)
	if isUniqueViolation(r.driver, err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return u, nil
}

const userColumns = `id, username, password_hash, elo, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var (
		u       models.User
		created interface{}
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Elo, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = parseTime(created)
	return &u, nil
}

// FindByUsername 按用户名查找
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	return scanUser(row)
}

// FindByID 按ID查找
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return scanUser(row)
}

// UpdateElos 在同一事务中更新双方积分
func (r *UserRepo) UpdateElos(ctx context.Context, elos map[int64]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	query := r.q(`UPDATE users SET elo = ? WHERE id = ?`)
	for id, elo := range elos {
		res, err := tx.ExecContext(ctx, query, elo, id)
		if err != nil {
			return fmt.Errorf("更新积分失败: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("更新积分失败: 用户%d: %w", id, ErrNotFound)
		}
	}
	return tx.Commit()
}

// Settlement 一场对局结算前后的双方积分
type Settlement struct {
	Me             models.User
	Opponent       models.User
	NewElo         int
	OpponentNewElo int
}

// SettleMatch 在同一事务中锁定双方账号，按rate计算并写入新积分
func (r *UserRepo) SettleMatch(ctx context.Context, userID, opponentID int64, rate func(mine, other int) (int, int)) (*Settlement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (?, ?) ORDER BY id`
	if r.driver == config.DriverPostgres {
		query += ` FOR UPDATE`
	}
	rows, err := tx.QueryContext(ctx, r.q(query), userID, opponentID)
	if err != nil {
		return nil, fmt.Errorf("查询对局双方失败: %w", err)
	}
	found := make(map[int64]*models.User, 2)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found[u.ID] = u
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	me, opp := found[userID], found[opponentID]
	if me == nil {
		return nil, fmt.Errorf("用户%d: %w", userID, ErrNotFound)
	}
	if opp == nil {
		return nil, fmt.Errorf("用户%d: %w", opponentID, ErrNotFound)
	}

	st := &Settlement{Me: *me, Opponent: *opp}
	st.NewElo, st.OpponentNewElo = rate(me.Elo, opp.Elo)

	update := r.q(`UPDATE users SET elo = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, update, st.NewElo, me.ID); err != nil {
		return nil, fmt.Errorf("更新积分失败: %w", err)
	}
	if _, err := tx.ExecContext(ctx, update, st.OpponentNewElo, opp.ID); err != nil {
		return nil, fmt.Errorf("更新积分失败: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}
	return st, nil
}

// Top 按积分降序返回前limit名
func (r *UserRepo) Top(ctx context.Context, limit int) ([]models.LadderEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT id, username, elo FROM users ORDER BY elo DESC, id ASC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("查询排行榜失败: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LadderEntry, 0, limit)
	for rows.Next() {
		var e models.LadderEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Elo); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
