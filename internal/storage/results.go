// Package storage keeps submitted result files in a flat directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// disallowed matches everything except ASCII letters, digits, underscore,
// hyphen and CJK ideographs U+4E00..U+9FA5.
var disallowed = regexp.MustCompile(`[^a-zA-Z0-9_\-\x{4e00}-\x{9fa5}]`)

// TimestampLayout is the second-precision local-time stamp used in filenames.
const TimestampLayout = "20060102_150405"

// SanitizeUserID reduces a decoded userId value to the characters allowed in
// a filename segment. The result may be empty.
func SanitizeUserID(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			s = "1"
		}
	}
	return disallowed.ReplaceAllString(s, "")
}

// Filename returns result_<sanitized>_<YYYYMMDD_HHMMSS>.json for t in local time.
// Two calls within the same second for the same user yield the same name.
func Filename(sanitized string, t time.Time) string {
	return fmt.Sprintf("result_%s_%s.json", sanitized, t.Local().Format(TimestampLayout))
}

// Store is a results directory on disk.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Ensure creates the results directory and its parents with mode 0755.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", s.Dir, err)
	}
	return nil
}

// Save writes data to Dir/filename. The data lands in a temp file first and
// is renamed into place, so a failed save never leaves a partial file. An
// existing file with the same name is replaced.
func (s *Store) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(s.Dir, filename)
	tmp := filepath.Join(s.Dir, ".tmp-"+uuid.New().String())

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("storage: write %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("storage: rename %s: %w", filename, err)
	}
	return path, nil
}

// File is one decoded result file.
type File struct {
	Path string
	Data map[string]any
}

// LoadError records a file that matched but could not be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

// LoadAll reads every *.json file in Dir plus every result_*.json file in
// Dir's parent, where downloaded results tend to be dropped. Files are
// returned in path order; undecodable files are reported separately.
func (s *Store) LoadAll() ([]File, []LoadError) {
	var paths []string
	if matches, err := filepath.Glob(filepath.Join(s.Dir, "*.json")); err == nil {
		paths = append(paths, matches...)
	}
	parent := filepath.Dir(filepath.Clean(s.Dir))
	if matches, err := filepath.Glob(filepath.Join(parent, "result_*.json")); err == nil {
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	var files []File
	var failed []LoadError
	for _, p := range paths {
		data, err := readResult(p)
		if err != nil {
			failed = append(failed, LoadError{Path: p, Err: err})
			continue
		}
		files = append(files, File{Path: p, Data: data})
	}
	return files, failed
}

func readResult(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	return data, nil
}
