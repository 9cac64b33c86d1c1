// Package jobrecur implements the recurring-job driver: given a clonable
// job template and a period, it enqueues the template once on start and
// again every period thereafter, logging and swallowing enqueue failures
// so a transient storage error never kills the schedule.
package jobrecur
