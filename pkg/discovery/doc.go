// Package discovery implements mDNS/DNS-SD discovery of ground stations.
//
// A station advertises one instance of the _droneauth._udp service, named
// GS-<port>. Drones started without a destination address browse for the
// service and use the first compatible station found.
//
// # TXT records
//
//	v     protocol version ("major.minor"), required
//	id    station source name, optional
//	hash  digest suite (sha256, sha512, sha3-256), optional
//
// Browsers ignore entries whose version is missing or has a different major
// version than version.Current.
package discovery
