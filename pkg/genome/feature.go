package genome

import (
	"regexp"
	"sort"
	"strings"
)

// roleDelimiterRe splits a multifunctional annotation into its roles.
// Roles are separated by "; " or by " @ " or " / " surrounded by
// whitespace.
var roleDelimiterRe = regexp.MustCompile(`\s*;\s+|\s+[@/]\s+`)

var (
	figPrefixRe = regexp.MustCompile(`^fig\|`)
	pipeRe      = regexp.MustCompile(`\|`)
)

// compartmentKeywords maps annotation comment keywords to single
// character compartment codes. Patterns are checked in order and every
// match contributes its code.
var compartmentKeywords = []struct {
	pattern *regexp.Regexp
	code    string
}{
	{regexp.MustCompile(`cytosolic`), "c"},
	{regexp.MustCompile(`plastidial`), "d"},
	{regexp.MustCompile(`mitochondrial`), "m"},
	{regexp.MustCompile(`peroxisomal`), "x"},
	{regexp.MustCompile(`lysosomal`), "l"},
	{regexp.MustCompile(`vacuolar`), "v"},
	{regexp.MustCompile(`nuclear`), "n"},
	{regexp.MustCompile(`plasma\smembrane`), "p"},
	{regexp.MustCompile(`cell\swall`), "w"},
	{regexp.MustCompile(`golgi\sapparatus`), "g"},
	{regexp.MustCompile(`endoplasmic\sreticulum`), "r"},
	{regexp.MustCompile(`extracellular`), "e"},
	{regexp.MustCompile(`cellwall`), "w"},
	{regexp.MustCompile(`periplasm`), "p"},
	{regexp.MustCompile(`cytosol`), "c"},
	{regexp.MustCompile(`golgi`), "g"},
	{regexp.MustCompile(`endoplasm`), "r"},
	{regexp.MustCompile(`lysosome`), "l"},
	{regexp.MustCompile(`nucleus`), "n"},
	{regexp.MustCompile(`chloroplast`), "h"},
	{regexp.MustCompile(`mitochondria`), "m"},
	{regexp.MustCompile(`peroxisome`), "x"},
	{regexp.MustCompile(`vacuole`), "v"},
	{regexp.MustCompile(`plastid`), "d"},
	{regexp.MustCompile(`unknown`), "u"},
}

// Feature is a genome feature with its annotation normalized into
// roles. Compartments come from the annotation comment and default to
// unknown when the comment gives no location.
type Feature struct {
	ID           string
	Function     string
	Comment      string
	Compartments []string
	Roles        []string
	SearchRoles  []string
	ECNumbers    []string
}

// NewFeature normalizes a feature ID and its annotated function. The
// organism prefix is stripped from the ID and remaining pipe
// characters are replaced so the ID is safe in gene reaction rules. The
// function is split into roles with a search name computed for each.
func NewFeature(id, function string) *Feature {
	feature := &Feature{
		ID:      pipeRe.ReplaceAllString(figPrefixRe.ReplaceAllString(id, ""), "."),
		Comment: "none",
	}

	parts := strings.Split(function, "#")
	feature.Function = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		feature.Comment = strings.TrimSpace(strings.Join(parts[1:], "#"))
	}

	codes := make(map[string]bool)
	for _, keyword := range compartmentKeywords {
		if keyword.pattern.MatchString(feature.Comment) {
			codes[keyword.code] = true
		}
	}
	if len(codes) == 0 {
		codes["u"] = true
	}
	for code := range codes {
		feature.Compartments = append(feature.Compartments, code)
	}
	sort.Strings(feature.Compartments)

	for _, role := range roleDelimiterRe.Split(feature.Function, -1) {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		feature.Roles = append(feature.Roles, role)
		feature.SearchRoles = append(feature.SearchRoles, MakeSearchName(role))
		feature.ECNumbers = append(feature.ECNumbers, ECNumbers(role)...)
	}
	return feature
}
