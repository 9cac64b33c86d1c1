// Package jobping implements the pinger: a timer actor that periodically
// nudges every dispatch-server thread to re-check parked workers against
// jobs whose scheduled time has since arrived. It is the sole mechanism
// that wakes a parked worker when no NewJob message ever arrives for it.
package jobping
