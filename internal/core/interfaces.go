package core

// Frame is a raw signaling payload. Relayed frames carry the exact bytes the
// peer sent; the relay never re-serializes them.
type Frame []byte

// SignalConnection abstracts a persistent bidirectional messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	IsOpen() bool
	Close()
}
