package storage

import "strings"

// CleanDir normalizes a directory or path prefix to the "/a/b/" form,
// "/" for the root
func CleanDir(dir string) string {
	dir = "/" + strings.Trim(dir, "/")
	if dir != "/" {
		dir += "/"
	}
	return dir
}
