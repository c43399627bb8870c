package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/jacl-coder/RhodesGacha-Server/internal/arena"
	"github.com/jacl-coder/RhodesGacha-Server/internal/game"
	"github.com/jacl-coder/RhodesGacha-Server/internal/gateway"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serviceType string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动服务",
	Long:  `启动游戏、竞技场和网关服务，--service 选择只启动其中一个。`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serviceType, "service", "all", "服务类型 (game, arena, gateway, all)")
}

func runServe(cmd *cobra.Command, args []string) error {
	switch serviceType {
	case "all", "game", "arena", "gateway":
	default:
		return fmt.Errorf("未知的服务类型: %s", serviceType)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)
	run := func(name string, fn func(context.Context) error) {
		if serviceType != "all" && serviceType != name {
			return
		}
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				return fmt.Errorf("%s服务: %w", name, err)
			}
			return nil
		})
	}

	run("arena", func(ctx context.Context) error {
		svc := arena.NewService(a.users, a.teams, a.ladder, a.cfg.Arena, a.source())
		return arena.NewServer(a.cfg.Server.ArenaPort, svc, a.tokens).Run(ctx)
	})
	run("game", func(ctx context.Context) error {
		client := arena.NewClient(a.cfg.Server.GetArenaURL(), a.cfg.Arena.Timeout)
		return game.NewGameServer(a.cfg, a.stateEnv(), a.saves, a.tokens, client).Run(ctx)
	})
	run("gateway", func(ctx context.Context) error {
		return gateway.NewGateway(a.cfg, gateway.Deps{
			Users:   a.users,
			Tokens:  a.tokens,
			Saves:   a.saves,
			Catalog: a.catalog,
			Clock:   a.clock,
		}).Run(ctx)
	})

	log.Printf("服务已启动: %s", serviceType)
	err = g.Wait()
	log.Println("服务器已安全关闭")
	return err
}
