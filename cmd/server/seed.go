package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/battle"
	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
	"github.com/jacl-coder/RhodesGacha-Server/internal/storage"
	"github.com/spf13/cobra"
)

// demoPassword 演示账号密码
const demoPassword = "password123"

var demoAccounts = []string{"amiya", "kaltsit", "exusiai", "texas", "specter"}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "创建带防守队伍的演示账号",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		for i, name := range demoAccounts {
			if err := seedAccount(cmd.Context(), a, name, i); err != nil {
				return fmt.Errorf("初始化演示账号 %s 失败: %w", name, err)
			}
		}
		log.Printf("演示账号初始化完成，密码: %s", demoPassword)
		return nil
	},
}

// demoState 构建持有指定角色的存档，角色uid依次为c1、c2...
func demoState(cat *catalog.Catalog, baseIDs []string, stars int, now time.Time) (*models.PlayerState, []string, error) {
	st := models.NewPlayerState(now)
	uids := make([]string, 0, len(baseIDs))
	for i, id := range baseIDs {
		arch, ok := cat.Character(id)
		if !ok {
			return nil, nil, fmt.Errorf("未知角色: %s", id)
		}
		c := models.NewOwnedCharacter(fmt.Sprintf("c%d", i+1), arch)
		c.Stars = stars
		st.Inventory = append(st.Inventory, c)
		st.ArenaRoster = append(st.ArenaRoster, c.UID)
		uids = append(uids, c.UID)
	}
	return st, uids, nil
}

// rotatedSquad 从可抽取角色中按偏移取出小队
func rotatedSquad(cat *catalog.Catalog, offset int) []string {
	pool := cat.Summonable()
	n := min(models.MaxSquadSize-1, len(pool))
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, pool[(offset+i)%len(pool)].ID)
	}
	return ids
}

func seedAccount(ctx context.Context, a *app, name string, index int) error {
	hash, err := auth.HashPassword(demoPassword, a.cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	user, err := a.users.Create(ctx, name, hash)
	if errors.Is(err, storage.ErrUsernameTaken) {
		user, err = a.users.FindByUsername(ctx, name)
	}
	if err != nil {
		return err
	}

	st, uids, err := demoState(a.catalog, rotatedSquad(a.catalog, index), 1+index%models.MaxStars, a.clock.Now())
	if err != nil {
		return err
	}
	data, err := state.Encode(st)
	if err != nil {
		return err
	}
	id := auth.Identity{UserID: user.ID, Username: user.Username}
	if err := a.saves.Save(ctx, id.SaveKey(), data); err != nil {
		return err
	}

	squad, power, err := battle.Snapshot(st, uids, a.catalog)
	if err != nil {
		return err
	}
	for _, t := range []models.TeamType{models.TeamAttack, models.TeamDefense} {
		team := models.ArenaTeam{UserID: user.ID, Type: t, Squad: squad, Power: power}
		if err := a.teams.Upsert(ctx, team); err != nil {
			return err
		}
	}
	if err := a.ladder.UpdateElo(ctx, user.ID, user.Username, user.Elo); err != nil {
		log.Printf("更新排行榜缓存失败: %v", err)
	}

	log.Printf("演示账号: %s (ID: %d, 战力: %d)", user.Username, user.ID, power)
	return nil
}
