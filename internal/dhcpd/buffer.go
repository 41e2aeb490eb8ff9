package dhcpd

import "sync"

var packetPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, maxPacketSize)
	},
}

const maxPacketSize = 1500

// getBuffer returns a reusable receive buffer from the pool.
func getBuffer() []byte {
	return packetPool.Get().([]byte)
}

// putBuffer returns b to the pool, zeroing it first so a subsequent
// reader never observes a previous packet's leftover bytes.
func putBuffer(b []byte) {
	for i := range b {
		b[i] = 0
	}
	packetPool.Put(b)
}
