package judge

import (
	"sort"
	"strings"

	appErr "codeverse/pkg/errors"
)

// languageIDs maps supported language names (lower case) to Judge0 language ids.
var languageIDs = map[string]int{
	"c++":        54,
	"c":          50,
	"c#":         52,
	"go":         55,
	"java":       62,
	"javascript": 63,
	"python":     71,
	"ruby":       74,
	"swift":      76,
	"typescript": 77,
}

// ResolveLanguage maps a language name to its judge language id.
// Matching is case-insensitive.
func ResolveLanguage(name string) (int, error) {
	id, ok := languageIDs[strings.ToLower(name)]
	if !ok {
		return 0, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", name)
	}
	return id, nil
}

// SupportedLanguages returns the supported language names in sorted order.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
