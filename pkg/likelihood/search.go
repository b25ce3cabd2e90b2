// Package likelihood calculates reaction likelihoods for a genome by
// searching its proteins against a database of proteins with known
// functional roles and propagating the alignment scores through
// rolesets, roles, complexes, and reactions.
package likelihood

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/logger"
)

// Search program names supported by the Searcher.
const (
	ProgramUsearch = "usearch"
	ProgramBlast   = "blast"
)

// SearchError reports a failed search program run with the output the
// program produced before failing.
type SearchError struct {
	Cmd    string
	Stdout string
	Stderr string
	Err    error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search command %q failed: %v\nstdout: %q\nstderr: %q",
		e.Cmd, e.Err, e.Stdout, e.Stderr)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Searcher runs a protein similarity search program.
type Searcher struct {
	programName string
	programPath string
	evalue      string
	accel       string
	threads     string
}

// NewSearcher creates a searcher for the named program. The program
// name must be one of usearch or blast.
func NewSearcher(programName, programPath, evalue, accel, threads string) (*Searcher, error) {
	if programName != ProgramUsearch && programName != ProgramBlast {
		return nil, fmt.Errorf("search program name must be either %s or %s, got %s",
			ProgramUsearch, ProgramBlast, programName)
	}
	return &Searcher{
		programName: programName,
		programPath: programPath,
		evalue:      evalue,
		accel:       accel,
		threads:     threads,
	}, nil
}

// BuildDatabase builds the search database from a protein fasta file.
func (s *Searcher) BuildDatabase(fastaPath, databasePath string) error {
	var args []string
	if s.programName == ProgramUsearch {
		args = []string{s.programPath, "-makeudb_ublast", fastaPath, "-output", databasePath}
	} else {
		args = []string{"makeblastdb", "-in", fastaPath, "-dbtype", "prot"}
	}
	return runSearchCommand(args)
}

// Run searches the query fasta file against the database and writes
// alignments in tabular format to the result file.
func (s *Searcher) Run(queryPath, databasePath, resultPath string) error {
	var args []string
	if s.programName == ProgramUsearch {
		args = []string{
			s.programPath, "-ublast", queryPath, "-db", databasePath,
			"-evalue", s.evalue, "-accel", s.accel, "-threads", s.threads,
			"-blast6out", resultPath,
		}
	} else {
		args = []string{
			s.programPath, "-query", queryPath, "-db", databasePath,
			"-outfmt", "6", "-evalue", s.evalue, "-num_threads", s.threads,
			"-out", resultPath,
		}
	}
	return runSearchCommand(args)
}

func runSearchCommand(args []string) error {
	logger.Debug("running search command", zap.Strings("args", args))
	cmd := exec.Command(args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &SearchError{
			Cmd:    strings.Join(args, " "),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// Hit is one alignment from a tabular search result.
type Hit struct {
	QSeqID   string
	SSeqID   string
	PIdent   float64
	Length   int
	Mismatch int
	GapOpen  int
	QStart   int
	QEnd     int
	SStart   int
	SEnd     int
	EValue   float64
	BitScore float64
}

// ReadHits reads a tabular search result file.
func ReadHits(path string) ([]Hit, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	reader.FieldsPerRecord = 12
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse search result file %s: %w", path, err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, fields := range rows {
		hit, err := parseHit(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to parse search result file %s: %w", path, err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func parseHit(fields []string) (Hit, error) {
	var h Hit
	var err error
	h.QSeqID = fields[0]
	h.SSeqID = fields[1]
	if h.PIdent, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return h, err
	}
	if h.Length, err = strconv.Atoi(fields[3]); err != nil {
		return h, err
	}
	if h.Mismatch, err = strconv.Atoi(fields[4]); err != nil {
		return h, err
	}
	if h.GapOpen, err = strconv.Atoi(fields[5]); err != nil {
		return h, err
	}
	if h.QStart, err = strconv.Atoi(fields[6]); err != nil {
		return h, err
	}
	if h.QEnd, err = strconv.Atoi(fields[7]); err != nil {
		return h, err
	}
	if h.SStart, err = strconv.Atoi(fields[8]); err != nil {
		return h, err
	}
	if h.SEnd, err = strconv.Atoi(fields[9]); err != nil {
		return h, err
	}
	if h.EValue, err = strconv.ParseFloat(fields[10], 64); err != nil {
		return h, err
	}
	if h.BitScore, err = strconv.ParseFloat(fields[11], 64); err != nil {
		return h, err
	}
	return h, nil
}
