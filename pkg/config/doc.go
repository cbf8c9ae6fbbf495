// Package config loads the host configuration that drives a collection cycle.
//
// A host configuration names the monitored target, the connectors to load,
// monitor-type include/exclude filters, the job pool and lock tunables, and
// protocol settings. Unset tunables fall back to pkg/defaults.
//
//	hostname: storage-01
//	sequential: false
//	excludedMonitors: [led]
//	lockTimeout: 90s
//	snmp:
//	  version: v2c
//	  community: public
package config
