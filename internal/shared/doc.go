// Package shared holds helpers used by more than one package of the report.
//
// The testutil subpackage provides:
//
//	- measurement file fixtures in the instrument's export layout
//	- a log capture handler for asserting on structured log records
package shared
