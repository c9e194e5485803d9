package resparse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
)

// valuesDir is the directory prefix holding resource description documents
// rather than file-backed resources.
const valuesDir = "values"

// PathData is the resource identity encoded in a file's location, following
// the res/dir[-qualifiers]/name.ext convention. ResourceDir is either a
// resource type name or "values".
type PathData struct {
	ResourceDir string
	Name        string
	Config      configdesc.Config
	Extension   string
	// Source is the path the data was extracted from, unchanged.
	Source string
}

// IsValues reports whether the path names a resource description document.
func (d PathData) IsValues() bool { return d.ResourceDir == valuesDir }

// ExtractPathData pulls the resource name, directory kind, and configuration
// out of a path shaped like [.../]dir[-qualifiers]/name[.ext].
func ExtractPathData(path string) (PathData, error) {
	dir, file := filepath.Split(filepath.ToSlash(path))

	dir = strings.TrimSuffix(dir, "/")
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[i+1:]
	}

	if dir == "" || file == "" {
		return PathData{}, fmt.Errorf("bad resource path '%s': expected type/name", path)
	}

	resourceDir := dir
	config := configdesc.Default()

	if i := strings.IndexByte(dir, '-'); i >= 0 {
		resourceDir = dir[:i]

		parsed, err := configdesc.Parse(dir[i+1:])
		if err != nil {
			return PathData{}, fmt.Errorf("bad resource path '%s': %w", path, err)
		}

		config = parsed
	}

	name := file
	extension := ""

	if i := strings.IndexByte(file, '.'); i >= 0 {
		name = file[:i]
		extension = file[i+1:]
	}

	return PathData{
		ResourceDir: resourceDir,
		Name:        name,
		Config:      config,
		Extension:   extension,
		Source:      path,
	}, nil
}
