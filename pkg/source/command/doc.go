// Package command runs local command lines and turns their output into
// source tables.
//
// The output is split into lines, then filtered in this order: the line
// range (beginAtLineNumber, endAtLineNumber, 1-based and inclusive), the
// exclude pattern, the keep pattern. Each remaining line is split into
// columns on any character of separator (whitespace runs when empty) and
// selectColumns keeps a subset such as "1,3-4".
//
// Monitor attributes referenced as ${attribute::name} reach the shell as
// single quoted words, so they must not be wrapped in quotes again.
//
//	sources:
//	  adapters:
//	    type: commandLine
//	    commandLine: /usr/sbin/lspci -mm -d 10de:
//	    timeout: 20s
//	    keep: 3D controller
//	    separator: '"'
//	    selectColumns: "1,6"
package command
