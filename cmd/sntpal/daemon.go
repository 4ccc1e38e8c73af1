package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AndrewLester/sntpal/internal/rpc"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

const daemonName = "sntpald"

var daemonCtx = &daemon.Context{
	PidFileName: fmt.Sprintf("/var/run/%s.pid", daemonName),
	PidFilePerm: 0644,
	LogFileName: fmt.Sprintf("/var/log/%s.log", daemonName),
	LogFilePerm: 0640,
	WorkDir:     "./",
	Umask:       027,
	Args:        append([]string{daemonName}, os.Args[1:]...),
}

func killDaemon() error {
	d, err := daemonCtx.Search()
	if err != nil {
		return fmt.Errorf("error finding daemon: %w", err)
	}

	if err = d.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("couldn't stop %s: %w", daemonName, err)
	}

	return nil
}

func newDaemonCommand() *cobra.Command {
	var noDaemon, stop bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Keep the clock synchronized in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stop {
				if err := killDaemon(); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Successfully stopped %s.\n", daemonName)

				return nil
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if !noDaemon {
				d, err := daemonCtx.Reborn()
				if err != nil {
					if errors.Is(err, daemon.ErrWouldBlock) {
						return fmt.Errorf("%s is already running, stop it with --stop", daemonName)
					}
					return fmt.Errorf("unable to run: %w", err)
				}

				if d != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Daemon process (%s, %d) started successfully.\n", daemonName, d.Pid)
					return nil
				}
				defer daemonCtx.Release() //nolint:errcheck

				logger.Info("daemon started", zap.Strings("args", os.Args))
			}

			return runDaemon(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&noDaemon, "no-daemon", false, "run in the foreground")
	cmd.Flags().BoolVar(&stop, "stop", false, "stop the running daemon")

	return cmd
}

func runDaemon(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer := sntpal.NewSyncer(logger.Named("syncer"), cfg.Config, cfg.Sync)

	socket := cfg.Socket
	if socket == "" {
		socket = sntpal.DefaultSocketPath
	}

	server := &rpc.RPCServer{Socket: socket, Source: syncer, Logger: logger.Named("rpc")}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		syncer.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return server.Listen(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				logger.Info("resync requested")
				syncer.Restart()
			}
		}
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-syncer.Synced():
			logger.Info("initial sync complete", zap.String("local_time", syncer.Status().DateTime.String()))
		}
		return nil
	})

	err := g.Wait()

	logger.Info("daemon stopped")

	return err
}
