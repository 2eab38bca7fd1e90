// Package templates holds the templ components behind the HTML pages.
// Edit the .templ files and regenerate with `templ generate`.
package templates

// TableGroup is one heading of the dashboard.
type TableGroup struct {
	Name   string
	Tables []TableCard
}

// TableCard is a table link on the dashboard.
type TableCard struct {
	Key  string
	Rows int
}
