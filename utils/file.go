package utils

import (
	"io"
	"os"
	"path/filepath"
)

func ReadAllFile(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// DirExist reports whether dir exists, optionally creating it first.
func DirExist(dir string, create bool) error {
	_, err := os.Stat(dir)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) && create {
		return os.MkdirAll(dir, 0755)
	}
	return err
}

func GetRunPath() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}
