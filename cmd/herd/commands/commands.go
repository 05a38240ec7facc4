package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/herd/internal/conventions"
	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/printer"
	"github.com/slok/herd/internal/storage"
	"github.com/slok/herd/internal/storage/sqlite"
	"github.com/slok/herd/internal/storage/yamlfile"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	// StoreTypeYAML stores the workflow in a YAML document file.
	StoreTypeYAML = "yaml"
	// StoreTypeSQLite stores the workflow in a SQLite file.
	StoreTypeSQLite = "sqlite"

	// OutputTypeTable prints human readable tables.
	OutputTypeTable = "table"
	// OutputTypeJSON prints machine readable JSON.
	OutputTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	Store      string
	Output     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory holding the shared workflow data.").Envar("HERD_DATA_DIR").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("store", "Selects the workflow store backend.").Envar("HERD_STORE").Default(StoreTypeYAML).EnumVar(&c.Store, StoreTypeYAML, StoreTypeSQLite)
	app.Flag("output", "Selects the output format.").Short('o').Default(OutputTypeTable).EnumVar(&c.Output, OutputTypeTable, OutputTypeJSON)

	return c
}

// NewRepository creates the configured store backend. The returned closer
// must be called when the command finishes.
func (c *RootCommand) NewRepository(ctx context.Context) (storage.Repository, func() error, error) {
	switch c.Store {
	case StoreTypeSQLite:
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: conventions.DBPath(c.DataDir),
			Logger: c.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		repo, err := yamlfile.NewRepository(yamlfile.RepositoryConfig{
			DataDir: c.DataDir,
			Logger:  c.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}
}

// NewPrinter creates the configured output printer.
func (c *RootCommand) NewPrinter() printer.Printer {
	if c.Output == OutputTypeJSON {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}
