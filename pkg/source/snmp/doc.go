// Package snmp runs SNMP get and table walk sources with gosnmp.
//
// A get source yields a single one-column row. A table source walks the
// OID and yields one row per instance index, with the columns selected by
// sub-id:
//
//	sources:
//	  disks:
//	    type: snmp
//	    mode: table
//	    oid: 1.3.6.1.4.1.232.3.2.5.1.1
//	    columns: [ID, "3", "6"]
//
// Requests to one host are paced with a token bucket.
package snmp
