package project

import "strings"

// FindTodo returns the index of the first todo task whose ID equals query
// or whose title contains it, ignoring case. It returns -1 when nothing
// matches; an empty query never matches.
//
// Ambiguous queries resolve by list order.
func FindTodo(tasks []Task, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return -1
	}
	for i, t := range tasks {
		if t.Status != StatusTodo {
			continue
		}
		if t.ID == strings.TrimSpace(query) || strings.Contains(strings.ToLower(t.Title), q) {
			return i
		}
	}
	return -1
}
