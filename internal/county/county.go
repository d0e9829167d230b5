// Package county canonicalizes UK county names. Every stage that compares
// county names goes through Normalize; no stage carries its own variant.
package county

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// suffixes are administrative qualifiers stripped when they appear as the
// final whitespace-separated token of a county name.
var suffixes = map[string]bool{
	"county":       true,
	"unitary":      true,
	"borough":      true,
	"city":         true,
	"metropolitan": true,
	"royal":        true,
	"district":     true,
	"council":      true,
	"region":       true,
}

// Normalize returns the canonical form of a raw county name.
// Any string containing "london" maps to "Greater London". Otherwise a
// single trailing administrative suffix is stripped and the remainder is
// title-cased. Empty input yields "". Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if strings.Contains(s, "london") {
		return "Greater London"
	}

	// Suffixes are stripped only after whitespace: a name that IS a bare
	// suffix token ("Borough") keeps it and title-cases as-is.
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		last := strings.TrimSpace(s[i+1:])
		if suffixes[last] {
			s = strings.TrimSpace(s[:i])
		}
	}
	if s == "" {
		return ""
	}

	return cases.Title(language.BritishEnglish).String(s)
}

// AliasTable maps normalized county spellings to their canonical replacement.
type AliasTable map[string]string

// LoadAliases reads county_aliases.json from configDir. Keys and values are
// normalized at load time. A missing file yields an empty table; an
// unreadable file is logged and treated as empty.
func LoadAliases(configDir string) AliasTable {
	path := filepath.Join(configDir, "county_aliases.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("county: failed to read alias file", zap.String("path", path), zap.Error(err))
		}
		return AliasTable{}
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		zap.L().Warn("county: failed to parse alias file", zap.String("path", path), zap.Error(err))
		return AliasTable{}
	}

	table := make(AliasTable, len(raw))
	for k, v := range raw {
		table[Normalize(k)] = Normalize(v)
	}
	return table
}

// MapToCanonical normalizes raw and applies the alias table. A name with no
// alias entry is returned in its normalized form unchanged.
func MapToCanonical(raw string, aliases AliasTable) string {
	norm := Normalize(raw)
	if canonical, ok := aliases[norm]; ok {
		return canonical
	}
	return norm
}
