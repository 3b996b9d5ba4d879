// Package hash provides the CRC32-Castagnoli checksum used for snapshot
// envelopes and S3 upload integrity checks.
//
//	checksum := hash.CRC32C(data)
//
// Go's crc32 package uses hardware instructions for this polynomial where
// available.
package hash
