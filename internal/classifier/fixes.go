package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

var (
	quotedName   = regexp.MustCompile("['\"`]([A-Za-z_][A-Za-z0-9_]*)['\"`]")
	codeTagName  = regexp.MustCompile(`<code>([A-Za-z_][A-Za-z0-9_]*)</code>`)
	fromImport   = regexp.MustCompile(`^(\s*from\s+\S+\s+import\s+)(.+)$`)
	plainImport  = regexp.MustCompile(`^(\s*)import\s+(.+)$`)
	boolCompare  = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.]*(?:\(\))?)\s*(==|!=|\bis not\b|\bis\b)\s*(True|False)\b`)
	commentStart = regexp.MustCompile(`\s+#.*$`)
)

// extractNames returns identifiers quoted or code-tagged in body, first occurrence first.
func extractNames(body string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(matches [][]string) {
		for _, m := range matches {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	add(quotedName.FindAllStringSubmatch(body, -1))
	add(codeTagName.FindAllStringSubmatch(body, -1))
	return names
}

// importStatement is a parsed single-line Python import.
type importStatement struct {
	prefix string
	names  []string
}

func parseImport(line string) (importStatement, bool) {
	line = commentStart.ReplaceAllString(strings.TrimRight(line, " \t\r"), "")
	if m := fromImport.FindStringSubmatch(line); m != nil {
		list := strings.TrimSpace(m[2])
		// multi-line parenthesized lists are ambiguous from one line
		if strings.HasPrefix(list, "(") && !strings.HasSuffix(list, ")") {
			return importStatement{}, false
		}
		list = strings.TrimSuffix(strings.TrimPrefix(list, "("), ")")
		return importStatement{prefix: m[1], names: splitImportList(list)}, true
	}
	if m := plainImport.FindStringSubmatch(line); m != nil {
		return importStatement{prefix: m[1] + "import ", names: splitImportList(m[2])}, true
	}
	return importStatement{}, false
}

func splitImportList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// importMatches reports whether an entry like "x" or "x as y" binds one of names.
func importMatches(entry string, names []string) bool {
	fields := strings.Fields(entry)
	if len(fields) == 0 {
		return false
	}
	for _, n := range names {
		if fields[0] == n || fields[len(fields)-1] == n {
			return true
		}
	}
	return false
}

// importAlreadyRemoved reports that the anchored line is an import that binds none of the flagged names.
func importAlreadyRemoved(in input) bool {
	if !in.hasLine || len(in.names) == 0 {
		return false
	}
	stmt, ok := parseImport(in.target)
	if !ok {
		return false
	}
	for _, entry := range stmt.names {
		if importMatches(entry, in.names) {
			return false
		}
	}
	return true
}

func fixUnusedImport(in input) (*models.Fix, bool) {
	if !in.hasLine || len(in.names) == 0 {
		return nil, false
	}
	stmt, ok := parseImport(in.target)
	if !ok {
		return nil, false
	}

	var kept []string
	for _, entry := range stmt.names {
		if !importMatches(entry, in.names) {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(stmt.names) {
		return nil, false
	}

	fix := &models.Fix{
		Original:    strings.TrimSpace(in.target),
		Explanation: fmt.Sprintf("Removed unused import(s): %s", strings.Join(in.names, ", ")),
	}
	if len(kept) == 0 {
		fix.Explanation = "Removed entire import (all imports unused)"
		return fix, true
	}
	fix.Replacement = stmt.prefix + strings.Join(kept, ", ")
	return fix, true
}

// fixImportLocation removes the local import; the explanation names the module-level target.
func fixImportLocation(in input) (*models.Fix, bool) {
	if !in.hasLine {
		return nil, false
	}
	if _, ok := parseImport(in.target); !ok {
		return nil, false
	}
	stmt := strings.TrimSpace(in.target)
	return &models.Fix{
		Original:    stmt,
		Explanation: fmt.Sprintf("Move `%s` from line %d to the module-level imports", stmt, in.comment.Location.Line),
	}, true
}

func fixDuplicateImport(in input) (*models.Fix, bool) {
	if !in.hasLine {
		return nil, false
	}
	if _, ok := parseImport(in.target); !ok {
		return nil, false
	}
	return &models.Fix{
		Original:    strings.TrimSpace(in.target),
		Explanation: "Removed duplicate import",
	}, true
}

func fixBooleanComparison(in input) (*models.Fix, bool) {
	if !in.hasLine || !boolCompare.MatchString(in.target) {
		return nil, false
	}
	fixed := boolCompare.ReplaceAllStringFunc(in.target, func(m string) string {
		parts := boolCompare.FindStringSubmatch(m)
		operand, op, literal := parts[1], parts[2], parts[3]
		truthy := literal == "True"
		if op == "!=" || op == "is not" {
			truthy = !truthy
		}
		if truthy {
			return operand
		}
		return "not " + operand
	})
	return &models.Fix{
		Original:    strings.TrimSpace(in.target),
		Replacement: fixed,
		Explanation: "Simplified comparison to a boolean literal",
	}, true
}
