package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike quotes the LIKE wildcards in s. Queries pair it with ESCAPE '\'.
func EscapeLike(s string) string { return likeEscaper.Replace(s) }

// LikeContains matches s anywhere in a column.
func LikeContains(s string) string { return "%" + EscapeLike(s) + "%" }

// LikePrefix matches columns starting with s.
func LikePrefix(s string) string { return EscapeLike(s) + "%" }
