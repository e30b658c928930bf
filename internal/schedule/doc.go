// Package schedule parses SCHEDULE values and drives periodic runs with
// robfig/cron.
package schedule
