package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/courttime/internal/adapters/console"
	"github.com/okian/courttime/internal/adapters/roster"
	"github.com/okian/courttime/internal/app"
	"github.com/okian/courttime/internal/config"
	"github.com/okian/courttime/internal/domain/ledger"
	"github.com/okian/courttime/pkg/logger"
	"github.com/okian/courttime/pkg/metrics"
)

type command struct {
	cfg     *config.Config
	svc     *app.Service
	metrics *metrics.Manager
	out     io.Writer
	log     logger.Logger
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "new":
		return c.newGame(ctx, args)
	case "load_team":
		return c.loadTeam(ctx, args)
	case "start":
		if err := want(args, 0); err != nil {
			return err
		}
		st, err := c.svc.StartClock(ctx)
		return c.render(ctx, st, err)
	case "stop":
		if err := want(args, 0); err != nil {
			return err
		}
		st, err := c.svc.StopClock(ctx)
		return c.render(ctx, st, err)
	case "replace":
		return c.replace(ctx, args)
	case "reset":
		return c.reset(ctx, args)
	case "show":
		return c.show(ctx, args)
	case "history":
		return c.history(ctx, args)
	case "metrics":
		return c.dumpMetrics(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func (c *command) newGame(ctx context.Context, args []string) error {
	players, err := numbers(args)
	if err != nil {
		return err
	}
	if err := app.ValidateLineup(players, c.cfg.LineupSize); err != nil {
		return err
	}
	return c.svc.SetStarters(ctx, players)
}

func (c *command) loadTeam(ctx context.Context, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	entries, err := roster.LoadFile(args[0], roster.WithDelimiter(c.cfg.Delimiter()))
	if err != nil {
		return err
	}
	return c.svc.LoadRoster(ctx, entries)
}

func (c *command) replace(ctx context.Context, args []string) error {
	if err := want(args, 2); err != nil {
		return err
	}
	ids, err := numbers(args)
	if err != nil {
		return err
	}
	c.log.Debug(ctx, "replace", logger.Int("out", ids[0]), logger.Int("in", ids[1]))
	st, err := c.svc.Substitute(ctx, ids[0], ids[1])
	return c.render(ctx, st, err)
}

func (c *command) reset(ctx context.Context, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	c.log.Debug(ctx, "reset the game")
	if err := c.svc.Reset(ctx); err != nil {
		return err
	}
	return c.svc.ResetRoster(ctx)
}

func (c *command) show(ctx context.Context, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	st, err := c.svc.Recompute(ctx)
	return c.render(ctx, st, err)
}

// render prints st with roster names once the operation that produced it succeeded.
func (c *command) render(ctx context.Context, st ledger.State, err error) error {
	if err != nil {
		return err
	}
	team, err := c.svc.Roster(ctx)
	if err != nil {
		return err
	}
	return console.Render(c.out, st, team)
}

func (c *command) history(ctx context.Context, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	ids, err := numbers(args)
	if err != nil {
		return err
	}
	events, err := c.svc.History(ctx, ids[0])
	if err != nil {
		return err
	}
	team, err := c.svc.Roster(ctx)
	if err != nil {
		return err
	}
	return console.RenderHistory(c.out, ids[0], events, team)
}

// dumpMetrics recomputes once so the court gauges are populated.
func (c *command) dumpMetrics(ctx context.Context, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	if _, err := c.svc.Recompute(ctx); err != nil {
		return err
	}
	return c.metrics.WriteText(c.out)
}

func want(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d argument(s), got %d", errUsage, n, len(args))
	}
	return nil
}

func numbers(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a player number", app.ErrInvalidPlayer, a)
		}
		out = append(out, n)
	}
	return out, nil
}
