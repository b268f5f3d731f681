// Package view manages which lead columns the dashboard shows and under
// which names. The view export writes exactly what the view shows.
package view
