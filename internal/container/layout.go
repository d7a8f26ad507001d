package container

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeLayout treats a single top-level directory as the runtime home, which is how
// distribution archives are usually packed. Anything else makes the root the home.
func HomeLayout(extractRoot string) (string, error) {
	entries, err := os.ReadDir(extractRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLayout, err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(extractRoot, entries[0].Name()), nil
	}
	return extractRoot, nil
}
