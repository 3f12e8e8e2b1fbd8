// Package hub provides management of a local GridConnect hub process.
//
// A GridConnect hub multiplexes TCP clients onto a CAN segment. Most
// installations point Lumen Station at an existing hub elsewhere on the
// network, but standalone layouts can have the station run one itself.
// This package manages the hub as a subprocess, providing:
//
//   - Configuration-driven startup (port taken from the station config)
//   - Automatic restart on failure with exponential backoff
//   - TCP readiness and health probing
//   - Graceful shutdown coordination
//
// Example configuration (in config.yaml):
//
//	lcc:
//	  host: "localhost"
//	  port: 12021
//	  hub:
//	    managed: true
//	    binary: "/usr/bin/hub"
//	    port: 12021
//
// When management is disabled (the default) Start and Stop are no-ops and
// the station simply connects to whatever is listening on lcc.host:port.
package hub
