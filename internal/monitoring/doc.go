// Package monitoring holds the replaceable diagnostic logger shared by the
// library packages.
package monitoring
