// File: internal/engine/languages.go
package engine

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// language pairs a rule-facing language name with its tree-sitter grammar.
type language struct {
	name    string
	grammar *sitter.Language
}

// languagesByExt maps file extensions to grammars. Extensions not listed
// here still get regex rules applied; they just skip syntax patterns.
var languagesByExt = map[string]language{
	".go":  {"go", golang.GetLanguage()},
	".js":  {"javascript", javascript.GetLanguage()},
	".jsx": {"javascript", javascript.GetLanguage()},
	".mjs": {"javascript", javascript.GetLanguage()},
	".py":  {"python", python.GetLanguage()},
}

// languageForPath resolves the language of a file from its extension.
func languageForPath(path string) (language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := languagesByExt[ext]
	return lang, ok
}

// grammarFor returns the grammar registered under a rule language name.
func grammarFor(name string) (*sitter.Language, bool) {
	for _, lang := range languagesByExt {
		if lang.name == name {
			return lang.grammar, true
		}
	}
	return nil, false
}
