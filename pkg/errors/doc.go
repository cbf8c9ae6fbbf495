// Package errors provides structured error types for better observability
// and programmatic error handling across the collection engine.
//
// Engine failures are contained at job level, so most of these errors end up
// in a log line rather than a return value. The code tells the reader which
// containment rule applied:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeTransientProtocol,
//	    "snmp walk failed",
//	    cause,
//	    map[string]any{
//	        "connector": connectorID,
//	        "oid":       src.OID,
//	    },
//	)
package errors
