// Command td is the task coordination CLI. Commands talk to a running
// serve daemon over its Unix socket when one is up, and fall back to
// opening the database directly otherwise.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/rpc"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/tools"
)

// Globals shared by every command. PersistentPreRun fills them in;
// ensureBackend connects lazily so commands like init and version work
// without a workspace.
var (
	jsonOutput bool
	dbFlag     string
	actorFlag  string
	noDaemon   bool

	actor  string
	dbPath string

	rootCtx = context.Background()

	store        storage.Storage
	eng          *engine.Engine
	dispatcher   *tools.Dispatcher
	daemonClient *rpc.Client
)

var rootCmd = &cobra.Command{
	Use:   "td",
	Short: "Task coordination for agent fleets",
	Long: `td coordinates a fleet of autonomous agents working a shared task list:
atomic reservation, dependency-aware availability, stale reservation
recovery, and a full audit and version history per task.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		// Flags beat config file and env.
		if cmd.Flags().Changed("json") {
			config.Set("json", jsonOutput)
		}
		if dbFlag != "" {
			config.Set("db", dbFlag)
		}
		jsonOutput = config.GetBool("json")
		actor = config.Actor(actorFlag)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeBackend()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Path to the task database")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Acting agent identity (default: config, then hostname)")
	rootCmd.PersistentFlags().BoolVar(&noDaemon, "no-daemon", false, "Bypass the daemon and open the database directly")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lifecycle", Title: "Task Lifecycle:"},
		&cobra.Group{ID: "views", Title: "Views & Queries:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeBackend()
		os.Exit(1)
	}
}

// findDatabasePath resolves the task database: --db flag, then config,
// then a walk up from CWD looking for .taskdeck/taskdeck.db.
func findDatabasePath() string {
	if path := config.GetString("db"); path != "" {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, ".taskdeck", "taskdeck.db")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// workspaceRoot is the directory containing .taskdeck for a database path.
func workspaceRoot(dbPath string) string {
	return filepath.Dir(filepath.Dir(dbPath))
}

func socketPathFor(dbPath string) string {
	if socket := config.GetString("socket"); socket != "" {
		return socket
	}
	return rpc.SocketPath(workspaceRoot(dbPath))
}

// ensureBackend connects the command to its backend: the daemon when
// one is serving this workspace, the database directly otherwise.
func ensureBackend() error {
	if daemonClient != nil || dispatcher != nil {
		return nil
	}

	dbPath = findDatabasePath()
	if dbPath == "" {
		return fmt.Errorf("no task database found (run 'td init' in your workspace, or pass --db)")
	}

	if !noDaemon {
		client, err := rpc.TryConnect(socketPathFor(dbPath), actor)
		if err != nil {
			return err
		}
		if client != nil {
			client.SetTimeout(config.GetDuration("request-timeout"))
			daemonClient = client
			return nil
		}
	}

	s, err := sqlite.New(rootCtx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	s.RetryBudget = config.GetInt("retry-budget")
	s.SlowQueryThreshold = config.GetDuration("slow-query-threshold")
	store = s

	eng = engine.New(store, nil)
	eng.StaleTimeout = config.StaleTimeout()
	dispatcher = tools.New(eng)
	return nil
}

func closeBackend() {
	if daemonClient != nil {
		_ = daemonClient.Close()
		daemonClient = nil
	}
	if store != nil {
		_ = store.Close()
		store = nil
	}
	dispatcher = nil
	eng = nil
}

// invoke routes one tool call to the daemon or the local dispatcher and
// returns the raw JSON result. Tool failures come back as errors with
// their "<kind>: <detail>" message intact.
func invoke(method string, params map[string]any) (json.RawMessage, error) {
	if err := ensureBackend(); err != nil {
		return nil, err
	}

	if daemonClient != nil {
		resp, err := daemonClient.Call(method, params)
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return resp.Data, nil
	}

	result, err := dispatcher.Call(rootCtx, method, params)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return data, nil
}

// invokeInto is invoke plus decoding into a typed result.
func invokeInto(method string, params map[string]any, out any) error {
	data, err := invoke(method, params)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}
