// Package pipeline cleans labelled training rows before a model is fitted on them.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"obesityweb/ml"
)

// Row is one labelled training example. Line is its line in the source file.
type Row struct {
	Line   int
	Vector []float64
	Label  string
}

// CleaningRule inspects a row. It may return a corrected copy, or an error to reject the row.
type CleaningRule interface {
	Apply(*Row) (*Row, error)
	Name() string
}

type QualityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
}

// DataCleaner runs every rule over every row and keeps the rows no rule rejected.
type DataCleaner struct {
	rules      []CleaningRule
	issues     []QualityIssue
	issuesLock sync.RWMutex

	stats     CleaningStats
	statsLock sync.RWMutex

	logger *zap.Logger
}

type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Corrected      int64            `json:"corrected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// NewDataCleaner returns a cleaner with the default rules: height unit correction,
// plausibility ranges and duplicate removal.
func NewDataCleaner(logger *zap.Logger) *DataCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cleaner := &DataCleaner{
		stats:  CleaningStats{Issues: make(map[string]int64)},
		logger: logger,
	}

	cleaner.AddRule(NewHeightUnitRule())
	cleaner.AddRule(NewRangeValidationRule())
	cleaner.AddRule(NewDuplicateDetectionRule())

	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
	dc.logger.Debug("added cleaning rule", zap.String("rule", rule.Name()))
}

// Clean returns the rows of set that passed every rule, with corrections applied.
// Source lines assume a single header line.
func (dc *DataCleaner) Clean(set *ml.TrainingSet) (*ml.TrainingSet, []QualityIssue) {
	cleaned := &ml.TrainingSet{}
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for i := range set.Vectors {
		dc.stats.TotalProcessed++

		original := &Row{Line: i + 2, Vector: set.Vectors[i], Label: set.Labels[i]}
		row := original
		var rowIssues []QualityIssue

		for _, rule := range dc.rules {
			cleanedRow, err := rule.Apply(row)
			if err != nil {
				rowIssues = append(rowIssues, QualityIssue{
					Type:     rule.Name(),
					Severity: "high",
					Message:  err.Error(),
					Line:     row.Line,
				})
				dc.stats.Issues[rule.Name()]++
				break
			}
			if cleanedRow != nil {
				row = cleanedRow
			}
		}

		if len(rowIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, rowIssues...)
			dc.issuesLock.Lock()
			dc.issues = append(dc.issues, rowIssues...)
			dc.issuesLock.Unlock()
			continue
		}

		if !rowsEqual(original, row) {
			dc.stats.Corrected++
		}
		dc.stats.Passed++
		cleaned.Vectors = append(cleaned.Vectors, row.Vector)
		cleaned.Labels = append(cleaned.Labels, row.Label)
	}

	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

func rowsEqual(a, b *Row) bool {
	if a.Label != b.Label || len(a.Vector) != len(b.Vector) {
		return false
	}
	for i := range a.Vector {
		if a.Vector[i] != b.Vector[i] {
			return false
		}
	}
	return true
}

func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// GetIssues returns the most recent limit issues; a limit of zero or less returns all of them.
func (dc *DataCleaner) GetIssues(limit int) []QualityIssue {
	dc.issuesLock.RLock()
	defer dc.issuesLock.RUnlock()

	if limit <= 0 || limit > len(dc.issues) {
		limit = len(dc.issues)
	}

	issues := make([]QualityIssue, limit)
	copy(issues, dc.issues[len(dc.issues)-limit:])
	return issues
}

func featureIndex(name string) int {
	for i, n := range ml.FeatureNames() {
		if n == name {
			return i
		}
	}
	return -1
}

// HeightUnitRule converts heights recorded in metres to centimetres.
type HeightUnitRule struct {
	MaxMetres float64
	index     int
}

func NewHeightUnitRule() *HeightUnitRule {
	return &HeightUnitRule{MaxMetres: 3, index: featureIndex(ml.AttrHeight)}
}

func (r *HeightUnitRule) Name() string {
	return "height_unit"
}

func (r *HeightUnitRule) Apply(row *Row) (*Row, error) {
	height := row.Vector[r.index]
	if height <= 0 || height >= r.MaxMetres {
		return row, nil
	}
	corrected := *row
	corrected.Vector = append([]float64(nil), row.Vector...)
	corrected.Vector[r.index] = height * 100
	return &corrected, nil
}

// Bounds is an inclusive plausibility range.
type Bounds struct {
	Min float64
	Max float64
}

// RangeValidationRule rejects rows whose numeric attributes fall outside plausible bounds.
type RangeValidationRule struct {
	Bounds map[string]Bounds
}

func NewRangeValidationRule() *RangeValidationRule {
	return &RangeValidationRule{
		Bounds: map[string]Bounds{
			ml.AttrAge:    {Min: 1, Max: 120},
			ml.AttrHeight: {Min: 50, Max: 250},
			ml.AttrWeight: {Min: 10, Max: 400},
		},
	}
}

func (r *RangeValidationRule) Name() string {
	return "range_validation"
}

func (r *RangeValidationRule) Apply(row *Row) (*Row, error) {
	for _, name := range ml.FeatureNames() {
		bounds, ok := r.Bounds[name]
		if !ok {
			continue
		}
		value := row.Vector[featureIndex(name)]
		if value < bounds.Min || value > bounds.Max {
			return nil, fmt.Errorf("%s %g out of range [%g, %g]", name, value, bounds.Min, bounds.Max)
		}
	}
	return row, nil
}

// DuplicateDetectionRule rejects a row identical to one already seen, label included.
type DuplicateDetectionRule struct {
	seen map[string]int
	mu   sync.Mutex
}

func NewDuplicateDetectionRule() *DuplicateDetectionRule {
	return &DuplicateDetectionRule{seen: make(map[string]int)}
}

func (r *DuplicateDetectionRule) Name() string {
	return "duplicate_detection"
}

func (r *DuplicateDetectionRule) Apply(row *Row) (*Row, error) {
	var key strings.Builder
	for _, v := range row.Vector {
		key.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		key.WriteByte(',')
	}
	key.WriteString(row.Label)

	r.mu.Lock()
	defer r.mu.Unlock()

	if first, exists := r.seen[key.String()]; exists {
		return nil, fmt.Errorf("duplicate of line %d", first)
	}
	r.seen[key.String()] = row.Line
	return row, nil
}
