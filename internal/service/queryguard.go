package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// mutatingKeywords is the denylist for queries against live databases.
// Matched as case-insensitive substrings, so a SELECT mentioning
// "created" inside an identifier is rejected too.
var mutatingKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER",
	"TRUNCATE", "PRAGMA", "GRANT", "REVOKE",
}

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)

// GuardQuery rejects query text containing any mutating keyword. This
// is defense in depth, not a SQL parser.
func GuardQuery(query string) error {
	upper := strings.ToUpper(query)
	for _, kw := range mutatingKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("query rejected: contains forbidden keyword %s", kw)
		}
	}
	return nil
}

// EnforceLimit forces a row ceiling on the query: appends a LIMIT when
// none is present and rewrites an existing one down to the ceiling.
func EnforceLimit(query string, maxRows int) string {
	loc := limitClause.FindStringSubmatchIndex(query)
	if loc == nil {
		return strings.TrimRight(strings.TrimSpace(query), ";") + fmt.Sprintf(" LIMIT %d", maxRows)
	}

	n, err := strconv.Atoi(query[loc[2]:loc[3]])
	if err != nil || n > maxRows {
		return query[:loc[0]] + fmt.Sprintf("LIMIT %d", maxRows) + query[loc[1]:]
	}
	return query
}
