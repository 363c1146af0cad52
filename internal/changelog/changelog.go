// Package changelog formats release entries and prepends them to the
// configured changelog file.
package changelog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Entry formats a changelog block for a release: a heading with the version
// and the date (no time component), the changelog text, and a blank line.
func Entry(version, text string, date time.Time) string {
	return fmt.Sprintf("# %s (%s)\n%s\n\n", version, date.Format("2006-01-02"), text)
}

// Prepend writes entry in front of the existing content of the changelog at
// path. A missing file is treated as empty. Running this twice double-prepends;
// the pipeline runs it exactly once per execution.
func Prepend(fs billy.Filesystem, path, entry string) error {
	existing, err := util.ReadFile(fs, path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read changelog %q: %w", path, err)
	}

	content := append([]byte(entry), existing...)
	if err := util.WriteFile(fs, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write changelog %q: %w", path, err)
	}
	return nil
}
