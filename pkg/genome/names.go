// Package genome retrieves genome annotations from a data API and
// normalizes feature functions into roles that can be matched against
// a reconstruction template.
package genome

import (
	"regexp"
	"strings"
)

var (
	ecNumberRe        = regexp.MustCompile(`\(EC ([\d\-]+\.[\d\-]+\.[\d\-]+\.[\d\-]+)\)`)
	tcNumberRe        = regexp.MustCompile(`\(TC ([\d\-]+\.[\w]+\.[\d\-]+\.[\d\-]+\.[\d\-]+)\)`)
	nadphRe           = regexp.MustCompile(`NAD\(P\)`)
	whitespaceRe      = regexp.MustCompile(`\s`)
	trailingCommentRe = regexp.MustCompile(`#.*$`)
	specialCharsRe    = regexp.MustCompile(`[-;:()\[\]',>]+`)
)

// MakeSearchName normalizes a role name so that trivially different
// spellings of the same role compare equal. EC and TC numbers are
// removed, NAD(P) is rewritten so its parentheses survive the special
// character strip, and case, whitespace, trailing comments, and special
// characters are removed.
func MakeSearchName(name string) string {
	searchName := ecNumberRe.ReplaceAllString(name, "")
	searchName = tcNumberRe.ReplaceAllString(searchName, "")
	searchName = nadphRe.ReplaceAllString(searchName, "NAD{P}")
	searchName = strings.ToLower(searchName)
	searchName = whitespaceRe.ReplaceAllString(searchName, "")
	searchName = trailingCommentRe.ReplaceAllString(searchName, "")
	searchName = specialCharsRe.ReplaceAllString(searchName, "")
	return searchName
}

// ECNumbers extracts the EC numbers from a role name.
func ECNumbers(name string) []string {
	var numbers []string
	for _, match := range ecNumberRe.FindAllStringSubmatch(name, -1) {
		numbers = append(numbers, match[1])
	}
	return numbers
}

// TCNumbers extracts the TC numbers from a role name.
func TCNumbers(name string) []string {
	var numbers []string
	for _, match := range tcNumberRe.FindAllStringSubmatch(name, -1) {
		numbers = append(numbers, match[1])
	}
	return numbers
}
