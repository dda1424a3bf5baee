package wavedump

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const ASCII_PATTERN = "wave*.txt"

type DataFile struct {
	Input  string
	Output string
}

// FindDataFiles walks parent looking for inputs. Binary files matching
// pattern get an output next to them with extension ext. For ASCII, every
// directory holding wave*.txt files is one input whose output is
// output{ext} inside that directory.
func FindDataFiles(parent string, pattern string, fileType FileType, ext string) ([]DataFile, error) {
	if fileType == ASCII {
		pattern = ASCII_PATTERN
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var files []DataFile
	dirs := make(map[string]bool)
	err := filepath.WalkDir(parent, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		switch fileType {
		case ASCII:
			dirs[filepath.Dir(path)] = true
		default:
			output := strings.TrimSuffix(path, filepath.Ext(path)) + ext
			files = append(files, DataFile{Input: path, Output: output})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", parent, err)
	}

	if fileType == ASCII {
		for dir := range dirs {
			files = append(files, DataFile{
				Input:  filepath.Join(dir, ASCII_PATTERN),
				Output: filepath.Join(dir, "output"+ext),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Input < files[j].Input
	})
	return files, nil
}
