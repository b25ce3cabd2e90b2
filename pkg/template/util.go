// Package template builds reconstruction templates from ModelSEED
// source files and reconstructs draft metabolic models for organisms
// from them.
package template

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/logger"
)

// universalCompartmentSuffixRe matches the compartment index suffix on
// a universal metabolite ID.
var universalCompartmentSuffixRe = regexp.MustCompile(`_([\d]+)$`)

// DuplicateError is returned when a source file defines two objects
// with the same ID.
type DuplicateError struct {
	ID   string
	Line int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("object with ID %s on line %d is a duplicate", e.ID, e.Line)
}

// TemplateError is returned when template data is inconsistent.
type TemplateError struct {
	Msg string
}

func (e *TemplateError) Error() string { return e.Msg }

// errSkip is returned by a creator to drop a source line without
// failing the whole file.
var errSkip = errors.New("skip object")

// validateHeader maps field names from a header line to their column
// positions and confirms every required field is present.
func validateHeader(fields []string, required []string) (map[string]int, error) {
	names := make(map[string]int, len(fields))
	for index, field := range fields {
		names[field] = index
	}
	for _, req := range required {
		if _, ok := names[req]; !ok {
			return nil, fmt.Errorf("required field %s is missing from header line", req)
		}
	}
	return names, nil
}

// readSource reads a source file that defines one object per line with
// fields separated by tabs. The first line is a header with the field
// names in any order. The create function is called for each remaining
// line and returns errSkip to drop a line. Lines with fewer fields than
// required are skipped with a warning.
func readSource(path string, required []string, create func(fields []string, names map[string]int, linenum int) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return fmt.Errorf("source file %s is empty", path)
	}
	names, err := validateHeader(strings.Split(strings.TrimSpace(scanner.Text()), "\t"), required)
	if err != nil {
		return err
	}

	linenum := 1
	skipped := 0
	for scanner.Scan() {
		linenum++
		fields := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(fields) < len(required) {
			logger.Warn("skipped object because one or more fields are missing",
				zap.String("path", path), zap.Int("line", linenum))
			skipped++
			continue
		}
		if err := create(fields, names, linenum); err != nil {
			if errors.Is(err, errSkip) {
				skipped++
				continue
			}
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if skipped > 0 {
		logger.Warn("skipped lines in source file",
			zap.String("path", path), zap.Int("count", skipped))
	}
	return nil
}
