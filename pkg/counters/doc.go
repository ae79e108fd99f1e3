// Package counters provides the namespaced counter registry shared by the host
// and its plugins. Each subsystem registers counters under its own namespace and
// increments them at its own operation points; namespaces carrying the reserved
// host prefix can only be touched through the privileged call path.
package counters
