// Package source discovers policy documents in a directory and reads them
// page by page.
//
// Discover lists the supported files (.pdf and .txt) directly inside a
// directory, sorted by file name. ReaderFor picks a Reader by extension; a
// Reader turns a file into ordered Pages holding body lines and table rows,
// which the extractor package then cleans.
package source
