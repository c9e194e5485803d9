package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kestrel-tools/resforge/internal/container"
	"github.com/kestrel-tools/resforge/pkg/restable"
)

// Dump output formats.
const (
	dumpFormatTable = "table"
	dumpFormatYAML  = "yaml"
)

// DumpCommand holds configuration and dependencies for the dump command.
type DumpCommand struct {
	format string

	fs  afero.Fs
	out io.Writer
}

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	return newDumpCommandWithDeps(afero.NewOsFs(), os.Stdout)
}

func newDumpCommandWithDeps(fs afero.Fs, out io.Writer) *cobra.Command {
	dc := &DumpCommand{fs: fs, out: out}

	cmd := &cobra.Command{
		Use:   "dump <container>",
		Short: "Inspect a compiled container",
		Args:  cobra.ExactArgs(1),
		RunE:  dc.run,
	}

	cmd.Flags().StringVar(&dc.format, "format", dumpFormatTable, "Output format: table, yaml")

	return cmd
}

func (d *DumpCommand) run(_ *cobra.Command, args []string) error {
	input := args[0]

	info, err := d.fs.Stat(input)
	if err != nil {
		return err
	}

	in, err := d.fs.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	resTable, err := container.Decode(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	switch d.format {
	case dumpFormatYAML:
		return d.dumpYAML(resTable)

	case dumpFormatTable:
		d.dumpTable(resTable, input, uint64(info.Size()))

		return nil
	}

	return fmt.Errorf("unknown dump format '%s'", d.format)
}

func (d *DumpCommand) dumpTable(resTable *restable.Table, input string, size uint64) {
	entries := 0
	for _, pkg := range resTable.Packages {
		for _, typ := range pkg.Types {
			entries += len(typ.Entries)
		}
	}

	fmt.Fprintf(d.out, "%s: %s on disk, %d package(s), %d entrie(s), %d pooled string(s)\n",
		input, humanize.Bytes(size), len(resTable.Packages), entries, resTable.StringPool.Len())

	w := table.NewWriter()
	w.SetOutputMirror(d.out)
	w.AppendHeader(table.Row{"Resource", "ID", "Visibility", "Config", "Value"})

	for _, pkg := range resTable.Packages {
		for _, typ := range pkg.Types {
			for _, entry := range typ.Entries {
				name := restable.Name{Package: pkg.Name, Type: typ.Type, Entry: entry.Name}

				id := ""
				if pkg.ID != nil && typ.ID != nil && entry.ID != nil {
					id = restable.MakeID(*pkg.ID, *typ.ID, *entry.ID).String()
				}

				if len(entry.Values) == 0 {
					w.AppendRow(table.Row{name.String(), id, entry.Symbol.State.String(), "", ""})

					continue
				}

				for _, cv := range entry.Values {
					configName := cv.Config.String()
					if configName == "" {
						configName = "default"
					}

					w.AppendRow(table.Row{name.String(), id, entry.Symbol.State.String(), configName, cv.Value.String()})
				}
			}
		}
	}

	w.Render()
}

// yamlResource is the flattened per-value form used by yaml output.
type yamlResource struct {
	Name       string `yaml:"name"`
	ID         string `yaml:"id,omitempty"`
	Visibility string `yaml:"visibility,omitempty"`
	Config     string `yaml:"config,omitempty"`
	Value      string `yaml:"value,omitempty"`
	Source     string `yaml:"source,omitempty"`
}

func (d *DumpCommand) dumpYAML(resTable *restable.Table) error {
	var resources []yamlResource

	for _, pkg := range resTable.Packages {
		for _, typ := range pkg.Types {
			for _, entry := range typ.Entries {
				name := restable.Name{Package: pkg.Name, Type: typ.Type, Entry: entry.Name}

				id := ""
				if pkg.ID != nil && typ.ID != nil && entry.ID != nil {
					id = restable.MakeID(*pkg.ID, *typ.ID, *entry.ID).String()
				}

				visibility := ""
				if entry.Symbol.State != restable.SymbolUndefined {
					visibility = entry.Symbol.State.String()
				}

				for _, cv := range entry.Values {
					resources = append(resources, yamlResource{
						Name:       name.String(),
						ID:         id,
						Visibility: visibility,
						Config:     cv.Config.String(),
						Value:      cv.Value.String(),
						Source:     cv.Source.String(),
					})
				}
			}
		}
	}

	encoded, err := yaml.Marshal(map[string][]yamlResource{"resources": resources})
	if err != nil {
		return err
	}

	_, err = d.out.Write(encoded)

	return err
}
