package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/herd/cmd/herd/commands"
	"github.com/slok/herd/internal/log"
	loglogrus "github.com/slok/herd/internal/log/logrus"
)

// Version is the application version (set via ldflags).
var Version = "dev"

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("herd", "Multi-agent workflow coordination tool.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	initCmd := commands.NewInitCommand(rootCmd, app)
	progressCmd := commands.NewProgressCommand(rootCmd, app)

	// Task subcommands share a parent command.
	taskCmd := app.Command("task", "Manage tasks.")
	taskAddCmd := commands.NewTaskAddCommand(rootCmd, taskCmd)
	taskListCmd := commands.NewTaskListCommand(rootCmd, taskCmd)
	taskClaimCmd := commands.NewTaskClaimCommand(rootCmd, taskCmd)
	taskCompleteCmd := commands.NewTaskCompleteCommand(rootCmd, taskCmd)
	taskDeleteCmd := commands.NewTaskDeleteCommand(rootCmd, taskCmd)
	taskGraphCmd := commands.NewTaskGraphCommand(rootCmd, taskCmd)

	// Lock subcommands share a parent command.
	lockCmd := app.Command("lock", "Manage file leases.")
	lockAcquireCmd := commands.NewLockAcquireCommand(rootCmd, lockCmd)
	lockReleaseCmd := commands.NewLockReleaseCommand(rootCmd, lockCmd)
	lockStatusCmd := commands.NewLockStatusCommand(rootCmd, lockCmd)
	lockWaitCmd := commands.NewLockWaitCommand(rootCmd, lockCmd)
	lockCleanupCmd := commands.NewLockCleanupCommand(rootCmd, lockCmd)
	lockForceReleaseCmd := commands.NewLockForceReleaseCommand(rootCmd, lockCmd)

	// Agent subcommands share a parent command.
	agentCmd := app.Command("agent", "Manage agents.")
	agentRegisterCmd := commands.NewAgentRegisterCommand(rootCmd, agentCmd)
	agentListCmd := commands.NewAgentListCommand(rootCmd, agentCmd)
	agentRenameCmd := commands.NewAgentRenameCommand(rootCmd, agentCmd)
	agentDeactivateCmd := commands.NewAgentDeactivateCommand(rootCmd, agentCmd)
	agentTouchCmd := commands.NewAgentTouchCommand(rootCmd, agentCmd)
	agentTakeoverCmd := commands.NewAgentTakeoverCommand(rootCmd, agentCmd)
	agentCleanupCmd := commands.NewAgentCleanupCommand(rootCmd, agentCmd)

	// Suggestion subcommands share a parent command.
	suggestionCmd := app.Command("suggestion", "Manage refactor suggestions.")
	suggestionListCmd := commands.NewSuggestionListCommand(rootCmd, suggestionCmd)
	suggestionDismissCmd := commands.NewSuggestionDismissCommand(rootCmd, suggestionCmd)

	cmds := map[string]commands.Command{
		initCmd.Name():              initCmd,
		progressCmd.Name():          progressCmd,
		taskAddCmd.Name():           taskAddCmd,
		taskListCmd.Name():          taskListCmd,
		taskClaimCmd.Name():         taskClaimCmd,
		taskCompleteCmd.Name():      taskCompleteCmd,
		taskDeleteCmd.Name():        taskDeleteCmd,
		taskGraphCmd.Name():         taskGraphCmd,
		lockAcquireCmd.Name():       lockAcquireCmd,
		lockReleaseCmd.Name():       lockReleaseCmd,
		lockStatusCmd.Name():        lockStatusCmd,
		lockWaitCmd.Name():          lockWaitCmd,
		lockCleanupCmd.Name():       lockCleanupCmd,
		lockForceReleaseCmd.Name():  lockForceReleaseCmd,
		agentRegisterCmd.Name():     agentRegisterCmd,
		agentListCmd.Name():         agentListCmd,
		agentRenameCmd.Name():       agentRenameCmd,
		agentDeactivateCmd.Name():   agentDeactivateCmd,
		agentTouchCmd.Name():        agentTouchCmd,
		agentTakeoverCmd.Name():     agentTakeoverCmd,
		agentCleanupCmd.Name():      agentCleanupCmd,
		suggestionListCmd.Name():    suggestionListCmd,
		suggestionDismissCmd.Name(): suggestionDismissCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that produce structured output (table/JSON)
	// to prevent log noise from mixing with printer output in the terminal.
	// Users can still enable logging with --debug.
	printerCommands := map[string]bool{
		"task list":       true,
		"task graph":      true,
		"progress":        true,
		"lock status":     true,
		"agent list":      true,
		"suggestion list": true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
