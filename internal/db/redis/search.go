package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/riahunter/internal/db"
)

const vectorScoreField = "__vector_score"

// SearchKNN runs a pre-filtered KNN query. Scores are cosine similarities
// (1 - cosine distance), best first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" || q.VectorField == "" {
		return nil, errors.New("index name and vector field are required")
	}
	if len(q.Vector) == 0 {
		return nil, errors.New("vector is required")
	}
	if q.K <= 0 {
		return nil, errors.New("k must be positive")
	}

	where := buildPredicate(q.Where)
	if where == "" {
		where = "*"
	} else {
		where = "(" + where + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", where, q.K, q.VectorField, vectorScoreField)

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		fields := append(append([]string(nil), q.ReturnFields...), vectorScoreField)
		args = appendReturn(args, fields)
	}
	args = append(args,
		"SORTBY", vectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseResult(raw, false)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if d, err := strconv.ParseFloat(e.Fields[vectorScoreField], 64); err == nil {
			e.Score = 1 - d
		}
		delete(e.Fields, vectorScoreField)
	}
	return res, nil
}

// SearchText runs a BM25 query matching any of the terms in TextField.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" || q.TextField == "" {
		return nil, errors.New("index name and text field are required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	terms := make([]string, 0)
	for _, t := range strings.Fields(q.Query) {
		terms = append(terms, escapeQuery(t))
	}
	if len(terms) == 0 {
		return nil, errors.New("query is required")
	}

	query := fmt.Sprintf("@%s:(%s)", q.TextField, strings.Join(terms, "|"))
	if where := buildPredicate(q.Where); where != "" {
		query = where + " " + query
	}

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, q.ReturnFields)
	}
	args = append(args,
		"WITHSCORES",
		"SCORER", "BM25",
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseResult(raw, true)
}

// SearchList returns one page of documents matching Where, ordered by key.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	query := buildPredicate(q.Where)
	if query == "" {
		query = "*"
	}

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, q.ReturnFields)
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseResult(raw, false)
}

func appendReturn(args, fields []string) []string {
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

// --- Result parsing ---

// parseResult decodes a RESP2 FT.SEARCH reply:
// [total, key1, fields1, ...] or, withScores, [total, key1, score1, fields1, ...].
func parseResult(raw []rueidis.RedisMessage, withScores bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	stride := 2
	if withScores {
		stride = 3
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/stride)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key}

		if withScores {
			scoreStr, err := raw[i+1].ToString()
			if err != nil {
				continue
			}
			if entry.Score, err = strconv.ParseFloat(scoreStr, 64); err != nil {
				continue
			}
		}

		fields, err := raw[i+stride-1].ToArray()
		if err != nil {
			continue
		}
		entry.Fields = parseFieldPairs(fields)
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Predicate building ---

// buildPredicate translates a db.Predicate into an FT.SEARCH query prefix.
func buildPredicate(p db.Predicate) string {
	if p.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(p.Tags)+len(p.Ranges))
	for _, t := range p.Tags {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", t.Field, tagEscaper.Replace(t.Value)))
	}
	for _, r := range p.Ranges {
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", r.Field, formatBound(r.Min), formatBound(r.Max)))
	}
	return strings.Join(parts, " ")
}

func formatBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`.`, `\.`,
	`,`, `\,`,
	`:`, `\:`,
)
