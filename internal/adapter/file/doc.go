// Package file writes the joined table to local files: CSV, Excel workbook
// and Parquet, plus the CSV list of cities dropped by weather resolution.
//
// Every sink writes to a temporary file in the target directory and renames
// it into place, so a failed run never leaves a truncated output behind.
package file
