// Package sqlext extracts statement-level facts from standalone .sql
// files (migrations, seed scripts) into the taint core's first-class
// sql_queries/sql_objects tables. No SQL-parsing library appears
// anywhere in the pack, so this splits statements and classifies them
// with a small hand-rolled scanner, in the same plain-text-over-regex
// spirit as internal/extract/terraform: split on statement-terminating
// semicolons outside of quotes/comments, then look at the leading
// keyword.
package sqlext

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for standalone .sql files.
type Extractor struct{}

// New returns a ready-to-register SQL file extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return []string{".sql"} }

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	facts := &model.Facts{}

	stmts := splitStatements(file.Content)
	for _, st := range stmts {
		text := strings.TrimSpace(st.text)
		if text == "" {
			continue
		}
		cmd := classify(text)
		if cmd == "" {
			continue
		}
		facts.SQLQueries = append(facts.SQLQueries, model.SQLQuery{
			File:             file.Path,
			Line:             st.line,
			QueryText:        text,
			Command:          cmd,
			ExtractionSource: "migration_file",
			Tables:           referencedTables(text, cmd),
		})

		if kind, name, ok := objectDefinition(text, cmd); ok {
			facts.SQLObjects = append(facts.SQLObjects, model.SQLObject{
				File: file.Path, Kind: kind, Name: name,
			})
		}
	}

	return facts, model.NewManifest(facts), nil
}

type statement struct {
	text string
	line int
}

// splitStatements breaks content into ';'-terminated statements, tracking
// the starting line of each and ignoring semicolons inside '...'/"..."
// string literals or -- line comments.
func splitStatements(content []byte) []statement {
	var out []statement
	var cur strings.Builder
	startLine := 1
	line := 1
	var inSingle, inDouble, inLineComment bool

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()
		inLineComment = false
		if strings.TrimSpace(cur.String()) == "" {
			startLine = line
		}
		for i := 0; i < len(raw); i++ {
			c := raw[i]
			if inLineComment {
				break
			}
			if !inSingle && !inDouble && c == '-' && i+1 < len(raw) && raw[i+1] == '-' {
				inLineComment = true
				break
			}
			switch {
			case c == '\'' && !inDouble:
				inSingle = !inSingle
			case c == '"' && !inSingle:
				inDouble = !inDouble
			case c == ';' && !inSingle && !inDouble:
				out = append(out, statement{text: cur.String(), line: startLine})
				cur.Reset()
				continue
			}
			cur.WriteByte(c)
		}
		cur.WriteByte('\n')
		line++
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, statement{text: cur.String(), line: startLine})
	}
	return out
}

func classify(text string) string {
	word := strings.ToUpper(firstWord(text))
	switch word {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "ALTER", "DROP":
		return word
	case "WITH":
		// a CTE almost always precedes a SELECT.
		return "SELECT"
	default:
		return ""
	}
}

func firstWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// objectDefinition recognizes CREATE TABLE/VIEW/INDEX statements and
// returns the object kind and name for sql_objects.
func objectDefinition(text, cmd string) (kind, name string, ok bool) {
	if cmd != "CREATE" {
		return "", "", false
	}
	upper := strings.ToUpper(text)
	for _, kw := range []string{"TABLE", "VIEW", "INDEX"} {
		marker := "CREATE " + kw
		idx := strings.Index(upper, marker)
		if idx < 0 {
			// tolerate "CREATE OR REPLACE VIEW" / "CREATE UNIQUE INDEX"
			marker = kw
			idx = strings.Index(upper, " "+kw+" ")
			if idx < 0 {
				continue
			}
			idx++
		}
		rest := strings.TrimSpace(text[idx+len(marker):])
		rest = strings.TrimPrefix(rest, "IF NOT EXISTS")
		rest = strings.TrimSpace(rest)
		name = firstWord(rest)
		name = strings.TrimRight(name, "(")
		name = strings.Trim(name, `"'`+"`")
		if name == "" {
			continue
		}
		return strings.ToLower(kw), name, true
	}
	return "", "", false
}

// referencedTables pulls table names following FROM/JOIN/INTO/UPDATE,
// a plain-text pass sufficient for flagging which tables a query
// touches without a full grammar.
func referencedTables(text, cmd string) []string {
	upper := strings.ToUpper(text)
	fields := strings.Fields(upper)
	orig := strings.Fields(text)
	seen := map[string]bool{}
	var out []string
	for i, f := range fields {
		if f != "FROM" && f != "JOIN" && f != "INTO" && f != "UPDATE" {
			continue
		}
		if i+1 >= len(orig) {
			continue
		}
		name := strings.Trim(orig[i+1], `,()"'`+"`")
		name = strings.TrimSuffix(name, ";")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
