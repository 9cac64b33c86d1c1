package errutils

// Package errutils provides a set of utilities for working with errors in Go.

// Example:
//
// The following example demonstrates how to use a `MultiError` to collect the errors of several steps:
//
//     package main
//
//     import (
//         "fmt"
//         "oss.nandlabs.io/jobforge/errutils"
//     )
//
//     func main() {
//         multiErr := errutils.NewMultiErr(nil)
//         multiErr.Add(firstStep())
//         multiErr.Add(secondStep())
//         if multiErr.HasErrors() {
//             fmt.Println(multiErr)
//         }
//     }
//
// In the above example, `Add` ignores a nil error, so only the steps that failed are collected.
// Printing the `MultiError` prints each collected error on its own line.
