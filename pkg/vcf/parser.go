// Package vcf reads variant calls from Variant Call Format text.
//
// Only the fixed columns needed for rule matching are interpreted. Genotype
// columns are ignored: zygosity is not derived from the file.
package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/niramay-pgx-server/internal/domain"
)

const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
)

const (
	minColumns    = 5
	maxLineLength = 1 << 20
)

var (
	// ErrNoRecords is returned when the input holds no data lines
	ErrNoRecords = errors.New("vcf: no variant records found")

	depthPattern = regexp.MustCompile(`(?:^|;)DP=(\d+)(?:;|$)`)
)

// Result holds the parsed variants and summary metrics for one file
type Result struct {
	Variants []domain.VariantRecord `json:"variants"`
	Quality  domain.QualityMetrics  `json:"quality_metrics"`
}

// Parser reads VCF text
type Parser struct{}

// NewParser creates a new VCF parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads every data line from r. Malformed lines are counted and skipped.
// A semicolon-separated ID column yields one record per identifier.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	result := &Result{Variants: []domain.VariantRecord{}}
	var depthSum float64
	var depthCount int

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < minColumns {
			result.Quality.SkippedLines++
			continue
		}

		pos, err := strconv.ParseInt(strings.TrimSpace(fields[colPos]), 10, 64)
		if err != nil || pos < 0 {
			result.Quality.SkippedLines++
			continue
		}

		result.Quality.TotalRecords++

		if len(fields) > colFilter {
			if filter := strings.TrimSpace(fields[colFilter]); filter == "PASS" || filter == "." {
				result.Quality.PassingFilter++
			}
		}
		if len(fields) > colInfo {
			if dp, ok := parseDepth(fields[colInfo]); ok {
				depthSum += float64(dp)
				depthCount++
			}
		}

		ids := parseIDs(fields[colID])
		if len(ids) > 0 {
			result.Quality.RecordsWithID++
		} else {
			ids = []string{""}
		}

		for _, id := range ids {
			result.Variants = append(result.Variants, domain.VariantRecord{
				ID:         id,
				Chromosome: strings.TrimSpace(fields[colChrom]),
				Position:   pos,
				Reference:  strings.TrimSpace(fields[colRef]),
				Alternates: parseAlternates(fields[colAlt]),
			})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vcf: failed to read input: %w", err)
	}
	if result.Quality.TotalRecords == 0 {
		return nil, ErrNoRecords
	}

	if depthCount > 0 {
		result.Quality.MeanDepth = depthSum / float64(depthCount)
	}
	return result, nil
}

// ParseString parses VCF content held in memory
func (p *Parser) ParseString(content string) (*Result, error) {
	return p.Parse(strings.NewReader(content))
}

func parseIDs(column string) []string {
	column = strings.TrimSpace(column)
	if column == "" || column == "." {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(column, ";") {
		if id = strings.TrimSpace(id); id != "" && id != "." {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseAlternates(column string) []string {
	column = strings.TrimSpace(column)
	if column == "" || column == "." {
		return nil
	}
	alts := strings.Split(column, ",")
	for i := range alts {
		alts[i] = strings.TrimSpace(alts[i])
	}
	return alts
}

func parseDepth(info string) (int64, bool) {
	match := depthPattern.FindStringSubmatch(strings.TrimSpace(info))
	if match == nil {
		return 0, false
	}
	dp, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return dp, true
}
