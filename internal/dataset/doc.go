// Package dataset loads the daily bike-sharing table.
//
// The source is a delimited text file with a header row (the UCI "day.csv"
// layout). Parse turns it into a columnar Table, Validate enforces the
// columns the dashboard depends on, and Loader memoises the validated table
// for the lifetime of the process with an explicit Invalidate hook.
package dataset
