package merge

import (
	"path"
	"strings"
)

// MangleEntry encodes a foreign package name into an entry name so that
// statically merged library resources cannot collide with the app's own.
func MangleEntry(pkg, entry string) string {
	return pkg + "$" + entry
}

// UnmangleEntry splits a mangled entry name back into its package and
// original entry. It returns ok=false for names that are not mangled.
func UnmangleEntry(entry string) (pkg, original string, ok bool) {
	i := strings.IndexByte(entry, '$')
	if i <= 0 || i == len(entry)-1 {
		return "", "", false
	}

	return entry[:i], entry[i+1:], true
}

// mangleFilePath applies the same encoding to the file name component of a
// file-backed resource's path.
func mangleFilePath(p, pkg string) string {
	dir, file := path.Split(p)

	return dir + MangleEntry(pkg, file)
}
