// Package pages holds the full-page components of the operator dashboard.
package pages
