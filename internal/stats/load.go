package stats

import (
	"github.com/parisxmas/crowdtest/internal/models"
	"github.com/parisxmas/crowdtest/internal/storage"
)

// Load decodes every result file the store can find. Files that cannot be
// read or do not have the submission shape are returned as failures.
func Load(store *storage.Store) ([]models.Submission, []storage.LoadError) {
	files, failed := store.LoadAll()
	subs := make([]models.Submission, 0, len(files))
	for _, f := range files {
		sub, err := models.DecodeSubmission(f.Data)
		if err != nil {
			failed = append(failed, storage.LoadError{Path: f.Path, Err: err})
			continue
		}
		subs = append(subs, sub)
	}
	return subs, failed
}
