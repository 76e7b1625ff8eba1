package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/resonance-tools/combatmeter/internal/api"
	"github.com/resonance-tools/combatmeter/internal/capture"
	"github.com/resonance-tools/combatmeter/internal/codec"
	"github.com/resonance-tools/combatmeter/internal/config"
	"github.com/resonance-tools/combatmeter/internal/engine"
	"github.com/resonance-tools/combatmeter/internal/logging"
	"github.com/resonance-tools/combatmeter/internal/monitor"
	"github.com/resonance-tools/combatmeter/internal/queue"
	"github.com/resonance-tools/combatmeter/internal/storage"
	"github.com/resonance-tools/combatmeter/internal/storage/memory"
	"github.com/resonance-tools/combatmeter/pkg/core"
)

// pipeline is one engine with its backend and codec, ready to decode.
type pipeline struct {
	app     *app
	backend storage.Backend
	zstd    *codec.Zstd
	engine  *engine.Engine
}

func (a *app) newPipeline(backend storage.Backend) (*pipeline, error) {
	zstd, err := codec.NewZstd(0)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engine.Dependencies{
		Backend:          backend,
		Session:          a.Session,
		Logger:           a.Logger,
		DispatcherLogger: logging.NewDispatcherLogger(a.ZLogger),
		Zstd:             zstd,
		MaxDepth:         config.GetInt("decoder.maxDepth"),
	})
	if err != nil {
		zstd.Close()
		return nil, err
	}
	return &pipeline{app: a, backend: backend, zstd: zstd, engine: eng}, nil
}

func (p *pipeline) Close() error {
	p.zstd.Close()
	return p.backend.Close()
}

func (p *pipeline) snapshot() []core.User {
	if s, ok := p.backend.(storage.Snapshotter); ok {
		return s.Snapshot()
	}
	return nil
}

// replay feeds a capture file through the engine and waits until every
// frame has been decoded.
func (p *pipeline) replay(ctx context.Context, path string) (capture.Stats, error) {
	q := queue.New[[]byte]()
	src := capture.NewSource(capture.Config(config.GetCaptureConfig()), q, p.app.Logger)

	runErr := make(chan error, 1)
	go func() {
		runErr <- p.engine.Run(ctx, q)
	}()

	stats, err := src.ReplayFile(ctx, path)
	q.Close()
	if rerr := <-runErr; rerr != nil && err == nil && !errors.Is(rerr, context.Canceled) {
		err = rerr
	}
	p.engine.Drain(q)
	return stats, err
}

func withApp(flags *rootFlags, cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return errors.Join(fn(a), a.Close())
}

func replayCmd(flags *rootFlags) *cobra.Command {
	var serverPort int

	cmd := &cobra.Command{
		Use:   "replay <capture.pcap>",
		Short: "Decode a packet capture and print per-player totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, cmd, func(a *app) error {
				if cmd.Flags().Changed("server-port") {
					config.Set("capture.serverPort", serverPort)
				}

				backend, err := a.initStorage(cmd.Context(), config.GetStorageConfig())
				if err != nil {
					return err
				}
				p, err := a.newPipeline(backend)
				if err != nil {
					return errors.Join(err, backend.Close())
				}

				start := time.Now()
				capStats, err := p.replay(cmd.Context(), args[0])
				users := p.snapshot()
				err = errors.Join(err, p.Close())

				a.Logger.Info("Replay finished",
					"file", filepath.Base(args[0]),
					"duration", time.Since(start),
					"packets", capStats.Packets,
					"frames", capStats.Frames,
					"resyncs", capStats.Resyncs)

				printUsers(cmd.OutOrStdout(), users)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&serverPort, "server-port", 0, "game server TCP port (0 detects it)")
	return cmd
}

func decodeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode hex-encoded buffers and print what they contain",
		Long: `decode runs each argument through the frame decoder as one buffer,
logging every classified combat event, then prints the resulting totals.
Whitespace inside an argument is ignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, cmd, func(a *app) error {
				bufs := make([][]byte, 0, len(args))
				for i, arg := range args {
					buf, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
					if err != nil {
						return fmt.Errorf("argument %d: %w", i+1, err)
					}
					bufs = append(bufs, buf)
				}

				p, err := a.newPipeline(memory.New(config.MemoryConfig{}))
				if err != nil {
					return err
				}
				defer p.Close()

				for _, buf := range bufs {
					p.engine.Process(buf)
				}

				st := p.engine.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "buffers=%d frames=%d failed=%d\n", st.Buffers, st.Frames, st.Failed)
				printUsers(cmd.OutOrStdout(), p.snapshot())
				return nil
			})
		},
	}
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var (
		listen     string
		pcapPath   string
		statusPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live statistics over HTTP",
		Long: `serve exposes the statistics store over HTTP (JSON and Prometheus) until
interrupted. With --pcap the capture is replayed into the store first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, cmd, func(a *app) error {
				ctx := cmd.Context()
				if listen == "" {
					listen = config.GetString("api.listen")
				}

				backend, err := a.initStorage(ctx, config.GetStorageConfig())
				if err != nil {
					return err
				}
				p, err := a.newPipeline(backend)
				if err != nil {
					return errors.Join(err, backend.Close())
				}
				defer p.Close()

				snaps, _ := backend.(storage.Snapshotter)
				srv, err := api.NewServer(api.Dependencies{
					Snapshots: snaps,
					Engine:    p.engine,
					Logger:    a.Logger,
				})
				if err != nil {
					return err
				}

				mon := monitor.NewService(monitor.Dependencies{
					Engine:     p.engine,
					Snapshots:  snaps,
					Logger:     a.Logger,
					StatusPath: statusPath,
					Interval:   5 * time.Second,
				})
				if err := mon.Start(ctx); err != nil {
					return err
				}
				defer mon.Stop()

				if pcapPath != "" {
					go func() {
						if _, err := p.replay(ctx, pcapPath); err != nil && !errors.Is(err, context.Canceled) {
							a.Logger.Error("Replay failed", "file", pcapPath, "error", err)
						}
					}()
				}

				a.Logger.Info("Serving statistics", "addr", listen)
				return srv.ListenAndServe(ctx, listen)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from api.listen)")
	cmd.Flags().StringVar(&pcapPath, "pcap", "", "capture file to replay into the store")
	cmd.Flags().StringVar(&statusPath, "status-file", "", "write a JSON status report here periodically")
	return cmd
}

func usersCmd() *cobra.Command {
	var (
		addr  string
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print the statistics of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(addr)
			if err := client.Healthcheck(); err != nil {
				return err
			}
			if reset {
				return client.Reset()
			}
			users, err := client.Users()
			if err != nil {
				return err
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8989", "server base URL")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear combat totals instead of printing them")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		},
	}
}

func printUsers(w io.Writer, users []core.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "no players seen")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tNAME\tPROFESSION\tDAMAGE\tCRIT%\tHEALING\tTAKEN\tFP")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.1f\t%d\t%d\t%d\n",
			u.UID, orDash(u.Name), orDash(u.Profession),
			u.Damage.Total, u.Damage.CritRate()*100,
			u.Healing.Total, u.TakenDamage, u.FightPoint)
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
