// Package commands implements CLI command handlers for resforge.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kestrel-tools/resforge/internal/config"
	"github.com/kestrel-tools/resforge/internal/container"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/merge"
	"github.com/kestrel-tools/resforge/pkg/resparse"
	"github.com/kestrel-tools/resforge/pkg/restable"
	"github.com/kestrel-tools/resforge/pkg/xmlpull"
)

// ErrCompileFailed is returned when any input produced error diagnostics.
var ErrCompileFailed = errors.New("compilation failed")

// CompileCommand holds configuration and dependencies for the compile
// command.
type CompileCommand struct {
	configPath string
	outputDir  string
	legacy     bool
	verbose    bool
	noColor    bool

	fs  afero.Fs
	err io.Writer
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	return newCompileCommandWithDeps(afero.NewOsFs(), os.Stderr)
}

func newCompileCommandWithDeps(fs afero.Fs, errWriter io.Writer) *cobra.Command {
	cc := &CompileCommand{fs: fs, err: errWriter}

	cmd := &cobra.Command{
		Use:   "compile <file>...",
		Short: "Compile resource files into intermediate containers",
		Long: "Compile resource description documents and file-backed resources\n" +
			"into intermediate containers consumed by the link command.",
		Args: cobra.MinimumNArgs(1),
		RunE: cc.run,
	}

	cmd.Flags().StringVar(&cc.configPath, "config", "", "Config file path (default: .resforge.yaml in CWD or $HOME)")
	cmd.Flags().StringVarP(&cc.outputDir, "output-dir", "o", "", "Directory for compiled containers")
	cmd.Flags().BoolVar(&cc.legacy, "legacy", false, "Treat some strict errors as warnings")
	cmd.Flags().BoolVarP(&cc.verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored diagnostics")

	return cmd
}

func (c *CompileCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("output-dir") {
		c.outputDir = cfg.Compile.OutputDir
	}

	if !cmd.Flags().Changed("legacy") {
		c.legacy = cfg.Compile.Legacy
	}

	logger := newLogger(c.err, c.verbose || cfg.Log.Verbose)
	reporter := &diag.Writer{Out: c.err, NoColor: c.noColor || cfg.Log.NoColor}

	if err := c.fs.MkdirAll(c.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, input := range args {
		if err := c.compileOne(logger, reporter, input); err != nil {
			return err
		}
	}

	if reporter.ErrorCount() > 0 {
		return fmt.Errorf("%w: %d error(s)", ErrCompileFailed, reporter.ErrorCount())
	}

	return nil
}

func (c *CompileCommand) compileOne(logger *slog.Logger, reporter *diag.Writer, input string) error {
	pathData, err := resparse.ExtractPathData(input)
	if err != nil {
		return err
	}

	table := restable.New()

	if pathData.IsValues() {
		logger.Debug("compiling resource document", "path", input, "config", pathData.Config.String())

		if !c.compileValues(reporter, table, pathData) {
			return nil
		}
	} else {
		logger.Debug("compiling file resource", "path", input, "config", pathData.Config.String())

		if !c.compileFile(reporter, table, pathData) {
			return nil
		}
	}

	outPath := filepath.Join(c.outputDir, containerName(pathData))

	out, err := c.fs.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	if err := container.Encode(out, table); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	logger.Debug("wrote container", "path", outPath)

	return nil
}

func (c *CompileCommand) compileValues(reporter diag.Reporter, table *restable.Table, pathData resparse.PathData) bool {
	data, err := afero.ReadFile(c.fs, pathData.Source)
	if err != nil {
		diag.Errorf(reporter, diag.Source{Path: pathData.Source}, "%v", err)

		return false
	}

	options := resparse.Options{
		DefaultTranslatable:        !strings.Contains(pathData.Name, "donottranslate"),
		ErrorOnPositionalArguments: !c.legacy,
	}

	parser := resparse.New(reporter, table, diag.Source{Path: pathData.Source}, pathData.Config, options)

	return parser.Parse(xmlpull.NewFromBytes(data))
}

func (c *CompileCommand) compileFile(reporter diag.Reporter, table *restable.Table, pathData resparse.PathData) bool {
	typ, ok := restable.ParseType(pathData.ResourceDir)
	if !ok {
		diag.Errorf(reporter, diag.Source{Path: pathData.Source},
			"invalid resource directory '%s'", pathData.ResourceDir)

		return false
	}

	files := merge.NewFSCollection(c.fs)
	name := restable.Name{Type: typ, Entry: pathData.Name}

	return table.AddFileReference(name, pathData.Config, diag.Source{Path: pathData.Source},
		outputResourcePath(typ, pathData), files.InsertFile(pathData.Source), reporter)
}

// outputResourcePath is where a file resource will live in the linked
// output. Legacy density-only qualifiers gain their implied version.
func outputResourcePath(typ restable.Type, pathData resparse.PathData) string {
	dir := typ.String()

	if config := pathData.Config.WithImpliedVersion(); !config.IsDefault() {
		dir += "-" + config.String()
	}

	path := "res/" + dir + "/" + pathData.Name
	if pathData.Extension != "" {
		path += "." + pathData.Extension
	}

	return path
}

// containerName flattens a resource path into a unique output file name,
// e.g. values-en/strings.xml becomes values-en_strings.flat.
func containerName(pathData resparse.PathData) string {
	dir := pathData.ResourceDir

	if !pathData.Config.IsDefault() {
		dir += "-" + pathData.Config.String()
	}

	return dir + "_" + pathData.Name + ".flat"
}

// newLogger builds the command logger; debug messages show only in verbose
// mode.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
