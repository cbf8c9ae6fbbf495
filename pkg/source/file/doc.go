// Package file reads local text files into source tables.
//
// A file source produces one row per non-empty, non-comment line:
//
//	sources:
//	  mounts:
//	    type: file
//	    path: /proc/mounts
//
// Columns are split on whitespace unless the source sets a separator. With
// mode "kv" each "key=value" line becomes a [key, value] row, sorted by key.
package file
