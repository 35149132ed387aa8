package judge

import (
	"testing"

	appErr "codeverse/pkg/errors"
)

func TestResolveLanguage(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"c++", 54},
		{"c", 50},
		{"c#", 52},
		{"go", 55},
		{"java", 62},
		{"javascript", 63},
		{"python", 71},
		{"ruby", 74},
		{"swift", 76},
		{"typescript", 77},
		{"Python", 71},
		{"JAVASCRIPT", 63},
	}
	for _, tc := range cases {
		got, err := ResolveLanguage(tc.name)
		if err != nil {
			t.Errorf("ResolveLanguage(%q) returned error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveLanguage(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestResolveLanguageUnsupported(t *testing.T) {
	_, err := ResolveLanguage("brainfuck")
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
}

func TestSupportedLanguagesSorted(t *testing.T) {
	names := SupportedLanguages()
	if len(names) != 10 {
		t.Fatalf("expected 10 languages, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("languages not sorted: %q before %q", names[i-1], names[i])
		}
	}
}
