package ventilation

import "hash/adler32"

// Fingerprint returns the number used to spread hosts
// across a pool of servers
func Fingerprint(hostname string) uint32 {
	return adler32.Checksum([]byte(hostname))
}
