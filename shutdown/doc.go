// Package shutdown coordinates orderly teardown of tool-server state.
//
// Components register handlers in phases. Lower phases run first and
// handlers within a phase run concurrently. The intended ordering for a
// tool client is caches before connections: flush discovered tool lists
// while their servers are still reachable, then stop the servers
// themselves.
package shutdown
