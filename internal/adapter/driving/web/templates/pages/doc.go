// Package pages contains the page components rendered inside the layout.
package pages
