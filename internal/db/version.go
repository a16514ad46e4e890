package db

import "io/fs"

// SchemaVersion returns the number of migration files for dialect, which
// equals its current schema version.
func SchemaVersion(dialect string) int {
	fsys, err := MigrationsFS(dialect)
	if err != nil {
		return 0
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}

	return count
}
