package staging

import "github.com/sigurn/crc8"

var crcTable = crc8.MakeTable(crc8.CRC8)

// Checksum returns the CRC-8 of p, which tools print to compare an image
// with what the agent staged.
func Checksum(p []byte) uint8 {
	return crc8.Checksum(p, crcTable)
}
