package main

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lychee-technology/smaq/internal/backend"
)

// fromClausePattern isolates the FROM clause of a single-predicate query so its file list can
// be glob-expanded before the grammar ever sees a '*': the parser itself only ever recognises
// literal paths, never patterns.
var fromClausePattern = regexp.MustCompile(`(?is)\bFROM\b(.+?)\bWHERE\b`)

// expandGlobs rewrites any '*'-bearing quoted path literal in queryText's FROM clause into a
// read_parquet([...]) list of the concrete files it matches (local filepath.Glob for bare
// paths, S3 ListObjectsV2-backed expansion for s3:// URIs), so the parser always receives a
// fully resolved file list.
func expandGlobs(ctx context.Context, queryText, s3Region string) (string, error) {
	loc := fromClausePattern.FindStringSubmatchIndex(queryText)
	if loc == nil {
		return queryText, nil
	}
	clause := queryText[loc[2]:loc[3]]
	if !strings.Contains(clause, "*") {
		return queryText, nil
	}

	literals := quotedLiteralPattern.FindAllString(clause, -1)
	var expanded []string
	for _, lit := range literals {
		path := strings.Trim(lit, "'\"")
		files, err := expandOne(ctx, path, s3Region)
		if err != nil {
			return "", fmt.Errorf("expand glob %q: %w", path, err)
		}
		expanded = append(expanded, files...)
	}
	if len(expanded) == 0 {
		return "", fmt.Errorf("glob pattern matched no files in FROM clause: %s", strings.TrimSpace(clause))
	}

	quoted := make([]string, len(expanded))
	for i, f := range expanded {
		quoted[i] = "'" + strings.ReplaceAll(f, "'", "''") + "'"
	}
	replacement := "read_parquet([" + strings.Join(quoted, ", ") + "])"

	return queryText[:loc[2]] + " " + replacement + " " + queryText[loc[3]:], nil
}

var quotedLiteralPattern = regexp.MustCompile(`'[^']*'|"[^"]*"`)

func expandOne(ctx context.Context, path, s3Region string) ([]string, error) {
	if strings.HasPrefix(path, "s3://") {
		return backend.ExpandS3Glob(ctx, s3Region, path)
	}
	return filepath.Glob(path)
}
