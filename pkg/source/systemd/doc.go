// Package systemd reads systemd unit properties over D-Bus into source
// tables.
//
// Each unit matching one of the source's unit patterns becomes a row: the
// unit name followed by the requested properties, in order.
//
//	sources:
//	  services:
//	    type: systemd
//	    units: ["nvidia-*.service"]
//	    properties: [ActiveState, SubState]
package systemd
