package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/battle"
	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
	"github.com/spf13/cobra"
)

var (
	simSeed  int64
	simSquad []string
	simStars int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "本地模拟一场关卡战斗并输出战斗日志",
	// 不需要数据库和配置文件
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := catalog.Default()
		squad := simSquad
		if len(squad) == 0 {
			squad = rotatedSquad(cat, 0)
		}

		st, uids, err := demoState(cat, squad, simStars, time.Now())
		if err != nil {
			return err
		}
		allies, err := battle.Allies(st, uids, cat)
		if err != nil {
			return err
		}

		src := rng.NewSeeded(simSeed)
		result := battle.Resolve(allies, battle.Enemies(cat), src)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "小队: %s\n", strings.Join(squad, ", "))
		for _, e := range result.Log {
			fmt.Fprintf(out, "[第%d回合] %s\n", e.Round, e.Text)
		}
		fmt.Fprintf(out, "结果: %s (%d回合)\n", result.Outcome, result.Rounds)

		if result.Outcome == battle.Victory {
			drops := battle.RollRewards(cat, src)
			fmt.Fprintf(out, "奖励: 金币%d 抽卡券%d 材料%v 装备%v\n",
				drops.Currency, drops.Tickets, drops.Materials, drops.Equipment)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 1, "随机种子")
	simulateCmd.Flags().StringSliceVar(&simSquad, "squad", nil, "出战角色模板id，默认取前三个可抽取角色")
	simulateCmd.Flags().IntVar(&simStars, "stars", 1, "角色星级")
}
