// Package stats aggregates stored crowd-test results into vote counts.
package stats

import (
	"strings"

	"github.com/parisxmas/crowdtest/internal/models"
)

// Record is one counted evaluation, flattened for the CSV export.
type Record struct {
	UserID         string
	ProductID      string
	ProductName    string
	Selections     []string
	SelectionNames string
	IsNone         bool
	DisplayOrder   []string
	Timestamp      string
}

type Stats struct {
	TotalUsers       int
	TotalEvaluations int
	VersionCounts    map[string]int
	ProductStats     map[string]map[string]int
	UserStats        map[string]map[string]int
	Records          []Record
}

func newStats() *Stats {
	return &Stats{
		VersionCounts: map[string]int{},
		ProductStats:  map[string]map[string]int{},
		UserStats:     map[string]map[string]int{},
	}
}

func (s *Stats) count(user, product, version string) {
	s.VersionCounts[version]++
	if s.ProductStats[product] == nil {
		s.ProductStats[product] = map[string]int{}
	}
	s.ProductStats[product][version]++
	if s.UserStats[user] == nil {
		s.UserStats[user] = map[string]int{}
	}
	s.UserStats[user][version]++
}

// Analyze counts every evaluation across submissions. A user is counted
// once no matter how many files they submitted. Evaluations with neither a
// selection nor a none vote are ignored.
func Analyze(subs []models.Submission) *Stats {
	s := newStats()
	seen := map[string]bool{}

	for _, sub := range subs {
		user := string(sub.UserID)
		if user == "" {
			user = "unknown"
		}
		if !seen[user] {
			seen[user] = true
			s.TotalUsers++
		}

		for _, e := range sub.Results {
			product := string(e.ProductID)
			sel, none := e.Choices()

			rec := Record{
				UserID:       user,
				ProductID:    product,
				ProductName:  string(e.ProductName),
				DisplayOrder: models.Strings(e.Order),
				Timestamp:    string(sub.Timestamp),
			}
			switch {
			case none:
				s.TotalEvaluations++
				s.count(user, product, models.VersionNone)
				rec.IsNone = true
				rec.SelectionNames = models.VersionName(models.VersionNone)
			case len(sel) > 0:
				s.TotalEvaluations++
				names := make([]string, len(sel))
				for i, v := range sel {
					s.count(user, product, v)
					names[i] = models.VersionName(v)
				}
				rec.Selections = sel
				rec.SelectionNames = strings.Join(names, "|")
			default:
				continue
			}
			s.Records = append(s.Records, rec)
		}
	}
	return s
}
