package stats

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parisxmas/crowdtest/internal/models"
)

const rule = "============================================================"

func percent(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// productOrder sorts product ids numerically; ids that are not all digits
// sort as 0, ties by id.
func productOrder(ids []string) {
	num := func(id string) int {
		if id == "" {
			return 0
		}
		for _, c := range id {
			if c < '0' || c > '9' {
				return 0
			}
		}
		n, _ := strconv.Atoi(id)
		return n
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ni, nj := num(ids[i]), num(ids[j])
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
}

func sortedKeys(m map[string]map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report renders the human-readable summary.
func (s *Stats) Report(now time.Time) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(rule)
	line("           众测结果统计报告")
	line(rule)
	line("生成时间: %s", now.Format("2006-01-02 15:04:05"))
	line("")

	line("【总体统计】")
	line("  参与用户数: %d", s.TotalUsers)
	line("  总评测数: %d", s.TotalEvaluations)
	line("")

	line("【各版本得票统计】")
	for _, v := range models.Versions {
		count := s.VersionCounts[v]
		p := percent(count, s.TotalEvaluations)
		filled := int(p / 2)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", max(50-filled, 0))
		line("  %-12s: %4d 票 (%5.1f%%) %s", models.VersionName(v), count, p, bar)
	}
	line("")

	line("【各商品统计】")
	products := sortedKeys(s.ProductStats)
	productOrder(products)
	for _, id := range products {
		data := s.ProductStats[id]
		total := sum(data)
		line("  商品%s:", id)
		for _, v := range models.Versions {
			line("    %-12s: %2d 票 (%5.1f%%)", models.VersionName(v), data[v], percent(data[v], total))
		}
		line("")
	}

	line("【用户统计】")
	for _, user := range sortedKeys(s.UserStats) {
		data := s.UserStats[user]
		line("  用户 [%s] (共 %d 票):", user, sum(data))
		for _, v := range models.Versions {
			if data[v] > 0 {
				line("    %s: %d 票", models.VersionName(v), data[v])
			}
		}
		line("")
	}

	b.WriteString(rule)
	return b.String()
}

// CSV renders one row per counted evaluation.
func (s *Stats) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"用户ID", "商品ID", "商品名称", "选择版本", "选择版本名称", "是否都不满意", "显示顺序", "时间戳"})
	for _, r := range s.Records {
		none := "否"
		if r.IsNone {
			none = "是"
		}
		w.Write([]string{
			r.UserID,
			r.ProductID,
			r.ProductName,
			strings.Join(r.Selections, "|"),
			r.SelectionNames,
			none,
			strings.Join(r.DisplayOrder, "|"),
			r.Timestamp,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type Summary struct {
	GeneratedAt        string                    `json:"generated_at"`
	TotalUsers         int                       `json:"total_users"`
	TotalEvaluations   int                       `json:"total_evaluations"`
	VersionSummary     map[string]int            `json:"version_summary"`
	VersionPercentages map[string]float64        `json:"version_percentages"`
	ProductStats       map[string]map[string]int `json:"product_stats"`
	UserStats          map[string]map[string]int `json:"user_stats"`
}

func byName(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[models.VersionName(k)] = v
	}
	return out
}

// Summary keys every count by version display name.
func (s *Stats) Summary(now time.Time) Summary {
	out := Summary{
		GeneratedAt:        now.Format("2006-01-02T15:04:05.000000"),
		TotalUsers:         s.TotalUsers,
		TotalEvaluations:   s.TotalEvaluations,
		VersionSummary:     byName(s.VersionCounts),
		VersionPercentages: map[string]float64{},
		ProductStats:       map[string]map[string]int{},
		UserStats:          map[string]map[string]int{},
	}
	for v, count := range s.VersionCounts {
		out.VersionPercentages[models.VersionName(v)] = math.Round(percent(count, s.TotalEvaluations)*100) / 100
	}
	for id, data := range s.ProductStats {
		out.ProductStats["商品"+id] = byName(data)
	}
	for user, data := range s.UserStats {
		out.UserStats[user] = byName(data)
	}
	return out
}

// Output file names inside the statistics directory.
const (
	ReportFile  = "report.txt"
	CSVFile     = "detailed_records.csv"
	SummaryFile = "summary.json"
)

// Write stores the report, CSV and JSON summary in dir, creating it when
// needed, and returns the paths written.
func (s *Stats) Write(dir string, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("stats: create %s: %w", dir, err)
	}

	csvData, err := s.CSV()
	if err != nil {
		return nil, fmt.Errorf("stats: csv: %w", err)
	}

	var summary bytes.Buffer
	enc := json.NewEncoder(&summary)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Summary(now)); err != nil {
		return nil, fmt.Errorf("stats: summary: %w", err)
	}

	outputs := []struct {
		name string
		data []byte
	}{
		{ReportFile, []byte(s.Report(now))},
		{CSVFile, csvData},
		{SummaryFile, summary.Bytes()},
	}
	var paths []string
	for _, o := range outputs {
		p := filepath.Join(dir, o.name)
		if err := os.WriteFile(p, o.data, 0o644); err != nil {
			return paths, fmt.Errorf("stats: write %s: %w", o.name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
