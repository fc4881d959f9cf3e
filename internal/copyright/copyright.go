// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package copyright checks and adds license headers of Go files.
package copyright

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const header = `// © %d Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

`

// Exclusions are files that carry the header of the code they are based on.
var Exclusions = []string{
	// Based on LUCI code.
	"internal/util/set/set.go",
}

func excluded(path string) bool {
	path = filepath.ToSlash(path)
	for _, ex := range Exclusions {
		if strings.HasSuffix(path, ex) {
			return true
		}
	}
	return false
}

// skipDir reports whether the go tool ignores the directory.
func skipDir(name string) bool {
	return name != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata")
}

func walk(root string, fn func(path string, content []byte, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || excluded(path) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.HasPrefix(content, []byte("// ©")) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, content, info)
	})
}

// Missing returns Go files under root without a copyright header.
func Missing(root string) ([]string, error) {
	var missing []string
	err := walk(root, func(path string, _ []byte, _ fs.FileInfo) error {
		missing = append(missing, path)
		return nil
	})
	return missing, err
}

// Add prepends the copyright header to Go files under root that lack it,
// dated with the file modification year.
func Add(root string) error {
	return walk(root, func(path string, content []byte, info fs.FileInfo) error {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, header, info.ModTime().Year())
		buf.Write(content)
		return os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
	})
}
