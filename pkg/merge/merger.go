// Package merge folds independently compiled resource tables into one
// destination table, applying package mangling, overlay, and configuration
// filtering policies.
package merge

import (
	"path"
	"strings"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/restable"
	"github.com/kestrel-tools/resforge/pkg/stringpool"
)

// Options control merge policy.
type Options struct {
	// AutoAddOverlay permits overlays to introduce resources the destination
	// does not already declare.
	AutoAddOverlay bool
	// Filter, when set, drops values whose configuration it rejects.
	Filter *AxisFilter
}

// FileKey identifies one config-qualified file-backed resource.
type FileKey struct {
	Name   restable.Name
	Config configdesc.Config
}

// FileToMerge is a deferred copy: the source file and the path it must be
// written to in the output. The actual byte copy happens in a later stage.
type FileToMerge struct {
	File    restable.FileHandle
	DstPath string
}

// FileDesc names a file-backed resource being merged directly from a
// compiled file rather than from a table.
type FileDesc struct {
	Name   restable.Name
	Config configdesc.Config
	Source diag.Source
}

// Merger accumulates source tables into a destination table owned by a
// single compilation package. Merging is strictly sequential; insertion
// order decides collision outcomes and must be reproducible.
type Merger struct {
	reporter diag.Reporter
	table    *restable.Table
	pkg      *restable.Package
	options  Options

	mergedPackages map[string]bool
	filesToMerge   map[FileKey]FileToMerge
}

// New returns a merger writing into table under the given package name.
func New(reporter diag.Reporter, table *restable.Table, pkgName string, pkgID *uint8, options Options) *Merger {
	return &Merger{
		reporter:       reporter,
		table:          table,
		pkg:            table.CreatePackage(pkgName, pkgID),
		options:        options,
		mergedPackages: make(map[string]bool),
		filesToMerge:   make(map[FileKey]FileToMerge),
	}
}

// MergedPackages reports the foreign package names folded in via
// MergeAndMangle.
func (m *Merger) MergedPackages() map[string]bool { return m.mergedPackages }

// FilesToMerge is the accumulated deferred-copy mapping.
func (m *Merger) FilesToMerge() map[FileKey]FileToMerge { return m.filesToMerge }

// Merge copies src's resources into the destination. Only packages that are
// unnamed or already carry the destination's name participate.
func (m *Merger) Merge(source diag.Source, src *restable.Table) bool {
	ok := true

	for _, srcPkg := range src.Packages {
		if srcPkg.Name != "" && srcPkg.Name != m.pkg.Name {
			diag.Warnf(m.reporter, source, "ignoring package '%s': name does not match '%s'", srcPkg.Name, m.pkg.Name)

			continue
		}

		if !m.mergePackage(source, srcPkg, "", false, nil) {
			ok = false
		}
	}

	return ok
}

// MergeAndMangle copies a named library package into the destination,
// renaming every entry to srcPackage$entry. File-backed values get the same
// treatment applied to their path's file name, and their byte copies are
// scheduled against files.
func (m *Merger) MergeAndMangle(source diag.Source, srcPackage string, src *restable.Table, files FileProvider) bool {
	ok := true

	for _, srcPkg := range src.Packages {
		if srcPkg.Name != srcPackage {
			continue
		}

		m.mergedPackages[srcPackage] = true

		if !m.mergePackage(source, srcPkg, srcPackage, false, files) {
			ok = false
		}
	}

	return ok
}

// MergeOverlay copies src on top of the destination: for resources the
// destination already has, the overlay's value wins unconditionally.
func (m *Merger) MergeOverlay(source diag.Source, src *restable.Table) bool {
	ok := true

	for _, srcPkg := range src.Packages {
		if srcPkg.Name != "" && srcPkg.Name != m.pkg.Name {
			diag.Warnf(m.reporter, source, "ignoring overlay package '%s': name does not match '%s'", srcPkg.Name, m.pkg.Name)

			continue
		}

		if !m.mergePackage(source, srcPkg, "", true, nil) {
			ok = false
		}
	}

	return ok
}

func (m *Merger) mergePackage(source diag.Source, srcPkg *restable.Package, mangleWith string, overlay bool, files FileProvider) bool {
	ok := true

	for _, srcType := range srcPkg.Types {
		dstType := m.pkg.FindOrCreateType(srcType.Type)

		if srcType.ID != nil {
			if dstType.ID != nil && *dstType.ID != *srcType.ID {
				diag.Errorf(m.reporter, source, "can not merge type '%s': conflicting type IDs 0x%02x and 0x%02x",
					srcType.Type, *dstType.ID, *srcType.ID)

				ok = false

				continue
			}

			id := *srcType.ID
			dstType.ID = &id
		}

		if srcType.Symbol.State > dstType.Symbol.State {
			dstType.Symbol = srcType.Symbol
		}

		for _, srcEntry := range srcType.Entries {
			if !m.mergeEntry(source, dstType, srcEntry, mangleWith, overlay, files) {
				ok = false
			}
		}
	}

	return ok
}

func (m *Merger) mergeEntry(source diag.Source, dstType *restable.TableType, srcEntry *restable.Entry, mangleWith string, overlay bool, files FileProvider) bool {
	entryName := srcEntry.Name
	if mangleWith != "" {
		entryName = MangleEntry(mangleWith, srcEntry.Name)
	}

	dstEntry := dstType.FindEntry(entryName)

	if dstEntry == nil {
		// A declared-but-undefined entry in the destination, made with
		// <add-resource>, also grants an overlay permission to define it.
		if overlay && !m.options.AutoAddOverlay {
			diag.Errorf(m.reporter, source, "resource '%s/%s' does not override an existing resource",
				dstType.Type, entryName)
			diag.Notef(m.reporter, source, "define an <add-resource> tag or use --auto-add-overlay")

			return false
		}

		dstEntry = dstType.FindOrCreateEntry(entryName)
	}

	if srcEntry.ID != nil {
		if dstEntry.ID != nil && *dstEntry.ID != *srcEntry.ID {
			diag.Errorf(m.reporter, source, "can not merge entry '%s': conflicting entry IDs 0x%04x and 0x%04x",
				entryName, *dstEntry.ID, *srcEntry.ID)

			return false
		}

		id := *srcEntry.ID
		dstEntry.ID = &id
	}

	if srcEntry.Symbol.State > dstEntry.Symbol.State {
		dstEntry.Symbol = srcEntry.Symbol

		if srcEntry.Symbol.State == restable.SymbolPublic {
			dstType.Symbol.State = restable.SymbolPublic
		}
	}

	ok := true

	for _, srcValue := range srcEntry.Values {
		if m.options.Filter != nil && !m.options.Filter.Match(srcValue.Config) {
			continue
		}

		value := srcValue.Value.Clone(m.table.StringPool)

		if fileRef, isFile := value.(*restable.FileReference); isFile && mangleWith != "" {
			value = m.mangleFileReference(fileRef, srcValue.Config,
				restable.Name{Package: m.pkg.Name, Type: dstType.Type, Entry: entryName}, files)
		}

		dstValue := dstEntry.FindValue(srcValue.Config)
		if dstValue == nil {
			cv := dstEntry.FindOrCreateValue(srcValue.Config)
			cv.Source = srcValue.Source
			cv.Comment = srcValue.Comment
			cv.Value = value

			continue
		}

		if overlay {
			dstValue.Source = srcValue.Source
			dstValue.Comment = srcValue.Comment
			dstValue.Value = value

			continue
		}

		switch restable.ResolveValueCollision(dstValue.Value, value) {
		case restable.CollisionTakeIncoming:
			dstValue.Source = srcValue.Source
			dstValue.Comment = srcValue.Comment
			dstValue.Value = value

		case restable.CollisionKeepExisting:

		case restable.CollisionConflict:
			diag.Errorf(m.reporter, srcValue.Source, "duplicate value for resource '%s/%s' with config '%s'",
				dstType.Type, entryName, srcValue.Config)
			diag.Notef(m.reporter, dstValue.Source, "resource previously defined here")

			ok = false
		}
	}

	return ok
}

// mangleFileReference rewrites the path of a mangled file-backed value and
// schedules the byte copy under the new name.
func (m *Merger) mangleFileReference(ref *restable.FileReference, config configdesc.Config, name restable.Name, files FileProvider) *restable.FileReference {
	srcPath := ref.PathRef.String()
	dstPath := mangleFilePath(srcPath, name.Package)

	if i := strings.LastIndexByte(name.Entry, '$'); i > 0 {
		// The entry is already mangled; mangle the path with the same
		// originating package instead of the destination's.
		dstPath = mangleFilePath(srcPath, name.Entry[:i])
	}

	mangled := &restable.FileReference{
		PathRef: m.table.StringPool.MakeRef(dstPath, stringpool.Context{Priority: 1, Config: config}),
		File:    ref.File,
	}

	if files != nil {
		if handle, found := files.FindFile(srcPath); found {
			mangled.File = handle
			m.filesToMerge[FileKey{Name: name, Config: config}] = FileToMerge{File: handle, DstPath: dstPath}
		}
	}

	return mangled
}

// MergeFile records one compiled resource file: the table gains a file
// reference pointing at the path the file will occupy in the output, and the
// copy itself is deferred.
func (m *Merger) MergeFile(desc FileDesc, file restable.FileHandle) bool {
	return m.mergeFileImpl(desc, file, false)
}

// MergeFileOverlay is MergeFile under overlay rules: an existing value for
// the same name and configuration is replaced.
func (m *Merger) MergeFileOverlay(desc FileDesc, file restable.FileHandle) bool {
	return m.mergeFileImpl(desc, file, true)
}

func (m *Merger) mergeFileImpl(desc FileDesc, file restable.FileHandle, overlay bool) bool {
	if m.options.Filter != nil && !m.options.Filter.Match(desc.Config) {
		return true
	}

	dstPath := buildResourcePath(desc)

	dstType := m.pkg.FindOrCreateType(desc.Name.Type)

	dstEntry := dstType.FindEntry(desc.Name.Entry)
	if dstEntry == nil {
		if overlay && !m.options.AutoAddOverlay {
			diag.Errorf(m.reporter, desc.Source, "resource '%s' does not override an existing resource", desc.Name)

			return false
		}

		dstEntry = dstType.FindOrCreateEntry(desc.Name.Entry)
	}

	value := &restable.FileReference{
		PathRef: m.table.StringPool.MakeRef(dstPath, stringpool.Context{Priority: 1, Config: desc.Config}),
		File:    file,
	}

	dstValue := dstEntry.FindValue(desc.Config)

	switch {
	case dstValue == nil:
		cv := dstEntry.FindOrCreateValue(desc.Config)
		cv.Source = desc.Source
		cv.Value = value

	case overlay:
		dstValue.Source = desc.Source
		dstValue.Value = value

	default:
		switch restable.ResolveValueCollision(dstValue.Value, value) {
		case restable.CollisionTakeIncoming:
			dstValue.Source = desc.Source
			dstValue.Value = value

		case restable.CollisionKeepExisting:
			// The same file merged twice, e.g. one container listed twice.

		case restable.CollisionConflict:
			diag.Errorf(m.reporter, desc.Source, "duplicate file for resource '%s' with config '%s'", desc.Name, desc.Config)
			diag.Notef(m.reporter, dstValue.Source, "file previously merged here")

			return false
		}
	}

	name := restable.Name{Package: m.pkg.Name, Type: desc.Name.Type, Entry: desc.Name.Entry}
	m.filesToMerge[FileKey{Name: name, Config: desc.Config}] = FileToMerge{File: file, DstPath: dstPath}

	return true
}

// buildResourcePath derives the output path of a merged file. Legacy
// density-only qualifiers gain their implied version so the directory name
// round-trips through the configuration parser.
func buildResourcePath(desc FileDesc) string {
	dir := desc.Name.Type.String()

	if config := desc.Config.WithImpliedVersion(); !config.IsDefault() {
		dir += "-" + config.String()
	}

	ext := path.Ext(desc.Source.Path)

	return "res/" + dir + "/" + desc.Name.Entry + ext
}
