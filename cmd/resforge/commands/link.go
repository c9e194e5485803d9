package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kestrel-tools/resforge/internal/config"
	"github.com/kestrel-tools/resforge/internal/container"
	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/link"
	"github.com/kestrel-tools/resforge/pkg/merge"
	"github.com/kestrel-tools/resforge/pkg/resolve"
	"github.com/kestrel-tools/resforge/pkg/restable"
)

// Errors returned by the link command.
var (
	// ErrLinkFailed is returned when linking produced error diagnostics.
	ErrLinkFailed = errors.New("linking failed")
	// ErrNoPackageName is returned when no compilation package is configured.
	ErrNoPackageName = errors.New("no package name; set link.package_name or pass --package")
)

// LinkCommand holds configuration and dependencies for the link command.
type LinkCommand struct {
	configPath     string
	output         string
	packageName    string
	packageID      int
	autoAddOverlay bool
	configs        []string
	includePaths   []string
	overlayPaths   []string
	verbose        bool
	noColor        bool

	fs  afero.Fs
	err io.Writer
}

// NewLinkCommand creates the link command.
func NewLinkCommand() *cobra.Command {
	return newLinkCommandWithDeps(afero.NewOsFs(), os.Stderr)
}

func newLinkCommandWithDeps(fs afero.Fs, errWriter io.Writer) *cobra.Command {
	lc := &LinkCommand{fs: fs, err: errWriter}

	cmd := &cobra.Command{
		Use:   "link <container>...",
		Short: "Merge compiled containers into a final table",
		Long: "Link merges compiled containers, library tables, and overlays into\n" +
			"one resource table, assigns resource IDs, and resolves references.",
		Args: cobra.MinimumNArgs(1),
		RunE: lc.run,
	}

	cmd.Flags().StringVar(&lc.configPath, "config", "", "Config file path (default: .resforge.yaml in CWD or $HOME)")
	cmd.Flags().StringVarP(&lc.output, "output", "o", "resources.flat", "Output container path")
	cmd.Flags().StringVar(&lc.packageName, "package", "", "Compilation package name")
	cmd.Flags().IntVar(&lc.packageID, "package-id", 0, "Package ID for assigned resources")
	cmd.Flags().BoolVar(&lc.autoAddOverlay, "auto-add-overlay", false, "Allow overlays to add new resources")
	cmd.Flags().StringSliceVarP(&lc.configs, "configs", "c", nil, "Keep only values matching these qualifiers (example: en,hdpi)")
	cmd.Flags().StringSliceVarP(&lc.includePaths, "include", "I", nil, "Compiled dependency tables for reference resolution")
	cmd.Flags().StringSliceVarP(&lc.overlayPaths, "overlay", "R", nil, "Overlay containers, applied in order")
	cmd.Flags().BoolVarP(&lc.verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVar(&lc.noColor, "no-color", false, "Disable colored diagnostics")

	return cmd
}

func (l *LinkCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(l.configPath)
	if err != nil {
		return err
	}

	l.applyConfig(cmd, cfg)

	if l.packageName == "" {
		return ErrNoPackageName
	}

	logger := newLogger(l.err, l.verbose || cfg.Log.Verbose)
	reporter := &diag.Writer{Out: l.err, NoColor: l.noColor || cfg.Log.NoColor}

	options := merge.Options{AutoAddOverlay: l.autoAddOverlay}

	if len(l.configs) > 0 {
		filter := &merge.AxisFilter{}

		for _, qualifier := range l.configs {
			parsed, err := configdesc.Parse(qualifier)
			if err != nil {
				return err
			}

			filter.AddConfig(parsed)
		}

		options.Filter = filter
	}

	finalTable := restable.New()
	pkgID := uint8(l.packageID)
	merger := merge.New(reporter, finalTable, l.packageName, &pkgID, options)
	files := merge.NewFSCollection(l.fs)

	for _, input := range args {
		if err := l.mergeContainer(logger, merger, files, input, false); err != nil {
			return err
		}
	}

	for _, input := range l.overlayPaths {
		if err := l.mergeContainer(logger, merger, files, input, true); err != nil {
			return err
		}
	}

	sources, err := l.loadIncludes()
	if err != nil {
		return err
	}

	link.MovePrivateAttributes(finalTable)

	if !link.AssignIDs(finalTable, pkgID, reporter) {
		return fmt.Errorf("%w: could not assign resource IDs", ErrLinkFailed)
	}

	resolver := resolve.New(finalTable, sources...)
	linker := link.NewReferenceLinker(reporter, resolver, l.packageName, merger.MergedPackages())

	if !linker.Link(finalTable) || reporter.ErrorCount() > 0 {
		return fmt.Errorf("%w: %d error(s)", ErrLinkFailed, reporter.ErrorCount())
	}

	out, err := l.fs.Create(l.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", l.output, err)
	}
	defer out.Close()

	if err := container.Encode(out, finalTable); err != nil {
		return fmt.Errorf("write %s: %w", l.output, err)
	}

	logger.Debug("wrote linked table", "path", l.output, "packages", len(finalTable.Packages))

	return nil
}

func (l *LinkCommand) applyConfig(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("package") {
		l.packageName = cfg.Link.PackageName
	}

	if !cmd.Flags().Changed("package-id") {
		l.packageID = cfg.Link.PackageID
	}

	if !cmd.Flags().Changed("auto-add-overlay") {
		l.autoAddOverlay = cfg.Link.AutoAddOverlay
	}

	if !cmd.Flags().Changed("configs") {
		l.configs = cfg.Link.Configs
	}

	if !cmd.Flags().Changed("include") {
		l.includePaths = cfg.Link.IncludePaths
	}
}

// mergeContainer folds one compiled container into the destination table.
// Packages named after a different compilation package are merged with
// name mangling so their entries cannot collide with local ones.
func (l *LinkCommand) mergeContainer(logger *slog.Logger, merger *merge.Merger, files merge.FileProvider, input string, overlay bool) error {
	in, err := l.fs.Open(input)
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	defer in.Close()

	table, err := container.Decode(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	source := diag.Source{Path: input}

	logger.Debug("merging container", "path", input, "overlay", overlay)

	if overlay {
		if !merger.MergeOverlay(source, table) {
			return fmt.Errorf("%w: overlay %s", ErrLinkFailed, input)
		}

		return nil
	}

	merged := true
	hasLocal := false

	for _, pkg := range table.Packages {
		if pkg.Name == "" || pkg.Name == l.packageName {
			hasLocal = true

			continue
		}

		if !merger.MergeAndMangle(source, pkg.Name, table, files) {
			merged = false
		}
	}

	if hasLocal && !merger.Merge(source, table) {
		merged = false
	}

	if !merged {
		return fmt.Errorf("%w: %s", ErrLinkFailed, input)
	}

	return nil
}

func (l *LinkCommand) loadIncludes() ([]resolve.Source, error) {
	var sources []resolve.Source

	for _, includePath := range l.includePaths {
		data, err := afero.ReadFile(l.fs, includePath)
		if err != nil {
			return nil, fmt.Errorf("open include %s: %w", includePath, err)
		}

		binTable, err := resolve.NewBinaryTable(data)
		if err != nil {
			return nil, fmt.Errorf("include %s: %w", includePath, err)
		}

		sources = append(sources, binTable)
	}

	return sources, nil
}
