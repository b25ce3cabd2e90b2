package likelihood

import (
	"bufio"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mmundy42/mackinac/logger"
)

// ReadFidRoleFile reads the tab separated file that maps target feature
// IDs to rolesets. A roleset is the concatenation of all roles of a
// protein with a single function. Lines without both fields are skipped
// with a warning.
func ReadFidRoleFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	targetRolesets := make(map[string]string)
	numSkipped := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
		if len(fields) < 2 {
			numSkipped++
			continue
		}
		targetRolesets[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if numSkipped > 0 {
		logger.Warn("skipped lines in feature ID to roleset file",
			zap.String("path", path), zap.Int("count", numSkipped))
	}
	return targetRolesets, nil
}
