package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/tickfsm"
	"github.com/comalice/tickfsm/internal/config"
	"github.com/comalice/tickfsm/internal/door"
	"github.com/comalice/tickfsm/internal/production"
	"github.com/comalice/tickfsm/metrics"
	"github.com/comalice/tickfsm/realtime"
	"github.com/comalice/tickfsm/scheduler"
	"github.com/comalice/tickfsm/timebase"
)

const doorTarget = "door"

type runFlags struct {
	duration time.Duration
	stdin    bool
}

func buildRunCommand(root *rootFlags) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the door controller",
		Long: `Run the door controller until interrupted or until --duration elapses.

With --stdin, lines read from standard input are sent to the door:
open, close or toggle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var in io.Reader
			if flags.stdin {
				in = cmd.InOrStdin()
			}
			return runController(cmd.Context(), cfg, logger, in, flags.duration)
		},
	}

	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&flags.stdin, "stdin", false, "read door commands from standard input")

	return cmd
}

// controller wires one door machine, its scheduler and the runtime.
type controller struct {
	cfg       config.Config
	logger    *slog.Logger
	clock     *timebase.Monotonic
	door      *door.Door
	machine   *door.Machine
	sched     *scheduler.Scheduler
	rt        *realtime.Runtime
	collector *metrics.Collector

	attempts int
}

func newController(cfg config.Config, logger *slog.Logger) (*controller, error) {
	c := &controller{
		cfg:       cfg,
		logger:    logger,
		clock:     timebase.NewMonotonic(timebase.WithResolution(cfg.Scheduler.Resolution)),
		door:      &door.Door{Logger: logger},
		collector: metrics.NewCollector(),
	}
	c.clock.Init()

	m, err := door.New(c.door,
		tickfsm.WithName("front-door"),
		tickfsm.WithClock(c.clock),
		tickfsm.WithLogger(logger),
		tickfsm.WithLocker(&sync.Mutex{}),
		tickfsm.WithObserver(c.collector),
	)
	if err != nil {
		return nil, err
	}
	c.machine = m

	c.sched = scheduler.New(c.clock,
		scheduler.WithCapacity(cfg.Scheduler.Capacity),
		scheduler.WithLogger(logger),
		scheduler.WithObserver(c.collector),
	)
	if _, err := c.sched.AddTask(scheduler.LoggingTask(logger, "toggle", c.toggle), cfg.Door.TogglePeriod); err != nil {
		return nil, err
	}
	if _, err := c.sched.AddPeriodicTask(c.heartbeat, cfg.Door.HeartbeatPeriod); err != nil {
		return nil, err
	}
	if err := c.sched.Init(); err != nil {
		return nil, err
	}

	c.rt = realtime.NewRuntime(realtime.Config{
		TickRate:         cfg.Runtime.TickRate,
		MaxEventsPerTick: cfg.Runtime.MaxEventsPerTick,
	},
		realtime.WithName("tickfsm-"+uuid.NewString()[:8]),
		realtime.WithScheduler(c.sched),
		realtime.WithLogger(logger),
		realtime.WithTickObserver(c.collector),
	)
	if err := c.rt.Attach(doorTarget, c.machine); err != nil {
		return nil, err
	}
	return c, nil
}

// toggle flips the door. Every FailEvery-th attempt reports failure, so the
// scheduler retries it on the next tick.
func (c *controller) toggle(int) scheduler.ExecStatus {
	c.attempts++
	if n := c.cfg.Door.FailEvery; n > 0 && c.attempts%n == 0 {
		c.logger.Warn("toggle attempt failed, retrying next tick", slog.Int("attempt", c.attempts))
		return scheduler.Fail
	}
	if err := c.machine.Dispatch(door.ToggleEvent{}); err != nil {
		c.logger.Error("toggle dispatch failed", slog.Any("error", err))
		return scheduler.Fail
	}
	if tickfsm.IsInState[door.Open](c.machine) && c.cfg.Door.AutoClose > 0 {
		if err := c.sched.AddDelayedTask(c.autoClose, c.cfg.Door.AutoClose); err != nil {
			c.logger.Error("failed to arm auto-close", slog.Any("error", err))
		}
	} else {
		c.sched.CancelDelayedTask()
	}
	return scheduler.Success
}

func (c *controller) autoClose() {
	if err := c.machine.Dispatch(door.CloseEvent{}); err != nil {
		c.logger.Error("auto-close failed", slog.Any("error", err))
		return
	}
	c.logger.Info("door auto-closed")
}

func (c *controller) heartbeat(int) {
	c.collector.SetQueueDepth(c.rt.QueueLen())
	c.logger.Info("heartbeat",
		slog.String("state", string(c.machine.StateID())),
		slog.Duration("in_state", c.machine.TimeSinceEnter()),
		slog.Uint64("tick", c.rt.GetTickNumber()),
		slog.Bool("auto_close_pending", c.sched.DelayedPending()))
}

func (c *controller) snapshot() production.Snapshot {
	return production.Snapshot{
		ID:       "tickfsm-" + time.Now().UTC().Format("20060102T150405"),
		TakenAt:  time.Now().UTC(),
		Tick:     c.rt.GetTickNumber(),
		Machines: []production.MachineStatus{production.StatusOf(c.machine)},
		Tasks:    c.sched.Tasks(),
	}
}

func runController(ctx context.Context, cfg config.Config, logger *slog.Logger, in io.Reader, duration time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	c, err := newController(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build controller: %w", err)
	}
	if err := c.machine.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := c.rt.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		return c.rt.Stop()
	})

	if cfg.Metrics.Enabled {
		logger.Info("serving metrics", slog.String("addr", cfg.Metrics.Addr))
		g.Go(func() error {
			return c.collector.Serve(gctx, cfg.Metrics.Addr)
		})
	}

	if in != nil {
		events := make(chan any)
		go readCommands(gctx, in, events, logger)
		g.Go(func() error {
			err := c.rt.AttachSource(gctx, doorTarget, events)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	// Stop may already have run; it is idempotent.
	_ = c.rt.Stop()

	if stopErr := c.machine.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	logger.Info("controller stopped",
		slog.Uint64("ticks", c.rt.GetTickNumber()),
		slog.Int("open_entries", c.door.OpenEntries),
		slog.Int("closed_entries", c.door.ClosedEntries))

	if cfg.Snapshot.Dir != "" {
		if saveErr := saveSnapshot(cfg, c.snapshot(), logger); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}
	return err
}

func saveSnapshot(cfg config.Config, snap production.Snapshot, logger *slog.Logger) error {
	p, err := production.NewPersister(cfg.Snapshot.Format, cfg.Snapshot.Dir)
	if err != nil {
		return err
	}
	if err := p.Save(context.Background(), snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	logger.Info("snapshot saved", slog.String("id", snap.ID), slog.String("dir", cfg.Snapshot.Dir))
	return nil
}

// readCommands parses one door command per line and closes out at EOF.
// If in is an io.Closer it is closed when ctx is done, which ends a Scan
// blocked on it. Otherwise the goroutine lives until in reaches EOF.
func readCommands(ctx context.Context, in io.Reader, out chan<- any, logger *slog.Logger) {
	defer close(out)
	if c, ok := in.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		ev, ok := parseCommand(sc.Text())
		if !ok {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				logger.Warn("unknown command", slog.String("line", line))
			}
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func parseCommand(line string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "open":
		return door.OpenEvent{}, true
	case "close":
		return door.CloseEvent{}, true
	case "toggle":
		return door.ToggleEvent{}, true
	default:
		return nil, false
	}
}
