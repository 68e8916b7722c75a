// File: internal/engine/matcher.go
package engine

import (
	"context"
	"fmt"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/crispud/semgrep/api/schemas"
)

// queryKey identifies a compiled query by rule and language, since the
// same query text compiles differently per grammar.
type queryKey struct {
	ruleIdx int
	lang    string
}

// matcher holds the rules with their patterns compiled up front, so a bad
// rule fails engine construction instead of the first matching file.
type matcher struct {
	rules   []Rule
	regexes map[int]*regexp.Regexp
	queries map[queryKey]*sitter.Query
}

func newMatcher(rules []Rule) (*matcher, error) {
	m := &matcher{
		rules:   rules,
		regexes: make(map[int]*regexp.Regexp),
		queries: make(map[queryKey]*sitter.Query),
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if r.PatternRegex != "" {
			m.regexes[i] = regexp.MustCompile(r.PatternRegex)
			continue
		}
		for _, langName := range r.Languages {
			grammar, ok := grammarFor(langName)
			if !ok {
				return nil, fmt.Errorf("rule %s names unsupported language %q", r.ID, langName)
			}
			q, err := sitter.NewQuery([]byte(r.Pattern), grammar)
			if err != nil {
				return nil, fmt.Errorf("rule %s has an invalid pattern for %s: %w", r.ID, langName, err)
			}
			m.queries[queryKey{i, langName}] = q
		}
	}
	return m, nil
}

// matchFile runs every applicable rule against one file's contents and
// returns the findings. The source is parsed at most once regardless of
// how many syntax rules apply.
func (m *matcher) matchFile(ctx context.Context, path string, src []byte) ([]schemas.Finding, error) {
	var findings []schemas.Finding

	lang, hasLang := languageForPath(path)
	langName := ""
	if hasLang {
		langName = lang.name
	}

	// Regex rules run line-wise against any file type they apply to.
	lines := newLineIndex(src)
	for i, r := range m.rules {
		re, ok := m.regexes[i]
		if !ok || !r.appliesTo(langName) {
			continue
		}
		for _, loc := range re.FindAllIndex(src, -1) {
			line, col := lines.position(loc[0])
			findings = append(findings, schemas.Finding{
				RuleID:   r.ID,
				Path:     path,
				Line:     line,
				Column:   col,
				Message:  r.Message,
				Severity: r.Severity,
			})
		}
	}

	if !hasLang {
		return findings, nil
	}

	// Parse once, then run each syntax query for this language.
	var tree *sitter.Tree
	for i, r := range m.rules {
		q, ok := m.queries[queryKey{i, langName}]
		if !ok {
			continue
		}
		if tree == nil {
			parser := sitter.NewParser()
			parser.SetLanguage(lang.grammar)
			var err error
			tree, err = parser.ParseCtx(ctx, nil, src)
			if err != nil {
				return findings, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			defer tree.Close()
		}

		qc := sitter.NewQueryCursor()
		qc.Exec(q, tree.RootNode())
		for {
			match, ok := qc.NextMatch()
			if !ok {
				break
			}
			match = qc.FilterPredicates(match, src)
			if len(match.Captures) == 0 {
				continue
			}
			node := match.Captures[0].Node
			findings = append(findings, schemas.Finding{
				RuleID:   r.ID,
				Path:     path,
				Line:     int(node.StartPoint().Row) + 1,
				Column:   int(node.StartPoint().Column) + 1,
				Message:  r.Message,
				Severity: r.Severity,
			})
		}
	}

	return findings, nil
}

// lineIndex converts byte offsets into 1-based line/column positions.
type lineIndex struct {
	starts []int
}

func newLineIndex(src []byte) *lineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

func (li *lineIndex) position(offset int) (line, col int) {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - li.starts[lo] + 1
}
