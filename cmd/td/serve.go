package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/events"
	"github.com/taskdeck/taskdeck/internal/rpc"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/sweeper"
	"github.com/taskdeck/taskdeck/internal/tools"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "admin",
	Short:   "Run the coordination daemon for this workspace",
	Long: `Run the daemon: a Unix-socket RPC server that serializes database
access for every td invocation in this workspace, plus the background
sweeper that releases stale reservations. One daemon per workspace,
enforced with a lock file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		foreground, _ := cmd.Flags().GetBool("foreground")

		dbPath = findDatabasePath()
		if dbPath == "" {
			return fmt.Errorf("no task database found (run 'td init' first, or pass --db)")
		}
		taskdeckDir := filepath.Dir(dbPath)

		lock := flock.New(filepath.Join(taskdeckDir, "daemon.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire daemon lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another daemon is already serving this workspace")
		}
		defer lock.Unlock()

		var logger *log.Logger
		if foreground {
			logger = log.New(os.Stderr, "", log.LstdFlags)
		} else {
			logger = log.New(&lumberjack.Logger{
				Filename:   filepath.Join(taskdeckDir, "daemon.log"),
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     14, // days
			}, "", log.LstdFlags)
		}

		s, err := sqlite.New(rootCtx, dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", dbPath, err)
		}
		defer s.Close()
		s.RetryBudget = config.GetInt("retry-budget")
		s.SlowQueryThreshold = config.GetDuration("slow-query-threshold")
		s.Logger = logger

		publisher := events.NewPublisher(config.GetInt("event-buffer"))
		publisher.Logger = logger
		defer publisher.Close()
		publisher.Subscribe(events.SubscriberFunc(func(event events.Event) error {
			payload, _ := json.Marshal(event)
			logger.Printf("event %s", payload)
			return nil
		}))

		daemonEngine := engine.New(s, publisher)
		daemonEngine.StaleTimeout = config.StaleTimeout()

		sw := sweeper.New(daemonEngine, config.SweepInterval())
		sw.Logger = logger
		sweepCtx, cancelSweep := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer cancelSweep()
		go sw.Run(sweepCtx)

		rpc.ServerVersion = Version
		socketPath := socketPathFor(dbPath)
		server := rpc.NewServer(socketPath, dbPath, tools.New(daemonEngine), rpc.ServerOptions{
			MaxConns:       config.GetInt("max-conns"),
			RequestTimeout: config.GetDuration("request-timeout"),
			Logger:         logger,
		})

		go func() {
			<-sweepCtx.Done()
			logger.Printf("shutting down")
			server.Stop()
		}()

		logger.Printf("daemon %s serving %s on %s", Version, dbPath, socketPath)
		if foreground || !jsonOutput {
			fmt.Printf("\n%s Daemon serving %s\n  socket: %s\n  pid:    %d\n\n",
				ui.RenderPass("✓"), dbPath, socketPath, os.Getpid())
		}
		if jsonOutput {
			outputJSON(map[string]any{
				"db_path":     dbPath,
				"socket_path": socketPath,
				"pid":         os.Getpid(),
			})
		}

		return server.Start()
	},
}

var shutdownCmd = &cobra.Command{
	Use:     "shutdown",
	GroupID: "admin",
	Short:   "Stop the workspace daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath = findDatabasePath()
		if dbPath == "" {
			return fmt.Errorf("no task database found")
		}
		client, err := rpc.Connect(socketPathFor(dbPath), actor)
		if err != nil {
			return fmt.Errorf("no daemon running for this workspace: %w", err)
		}
		defer client.Close()
		if err := client.Shutdown(); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]bool{"shutdown": true})
			return nil
		}
		fmt.Printf("\n%s Daemon stopped\n\n", ui.RenderPass("✓"))
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("foreground", false, "Log to stderr instead of .taskdeck/daemon.log")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(shutdownCmd)
}
