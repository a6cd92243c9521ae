package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var copySuffix = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// UniqueName returns name if it is not in taken, otherwise the first free
// "name (n)" with n counting up from 1. A name that already carries a
// "(n)" suffix keeps counting from that n.
func UniqueName(name string, taken []string) string {
	used := toSet(taken)
	if !used[name] {
		return name
	}

	base, n := name, 1
	if m := copySuffix.FindStringSubmatch(name); m != nil {
		base = m[1]
		n, _ = strconv.Atoi(m[2])
	}

	for ; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !used[candidate] {
			return candidate
		}
	}
}

// UniqueNumberedName returns the first "prefix n" not in taken, n counting up
// from 1. It produces default names such as "Scene 1", "Scene 2".
func UniqueNumberedName(prefix string, taken []string) string {
	used := toSet(taken)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s %d", prefix, n)
		if !used[candidate] {
			return candidate
		}
	}
}

// UniqueFilePath returns filepath.Join(dir, fileName) when no such file
// exists, otherwise the first free path with "_n" inserted before the
// extension.
func UniqueFilePath(dir, fileName string) string {
	path := filepath.Join(dir, fileName)
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(fileName)
	base := fileName[:len(fileName)-len(ext)]
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
