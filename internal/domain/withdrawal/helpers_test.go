package withdrawal

import (
	"os"
	"path/filepath"
)

func readFile(dir, key string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	return string(b), err
}
