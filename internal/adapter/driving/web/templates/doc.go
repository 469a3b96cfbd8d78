// Package templates holds the page layout shared by every web page.
package templates
