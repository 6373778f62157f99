// Package templates holds the shared page chrome for the operator dashboard.
// Components are written in .templ files; run `go tool templ generate` after
// editing them.
package templates
