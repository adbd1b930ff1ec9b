package cipher

// Padding is the injected padding capability EncryptingSink and
// DecryptingStream are parameterised over.
type Padding interface {
	// AddPadding fills block[dataOffset:] with the padding bytes for a
	// block of this size, given dataOffset real data bytes at the front.
	AddPadding(block []byte, dataOffset int)
	// PadCount returns how many trailing bytes of a fully decrypted final
	// block are padding, read from the block itself.
	PadCount(block []byte) int
}

// PKCS7 implements PKCS#7-style padding: the final block is filled with N
// copies of the byte N, where N = block_size - dataOffset. An input that
// exactly fills a block still receives one full block of padding (N =
// block_size), so the padding is never zero bytes and pad_count is always
// recoverable.
type PKCS7 struct{}

// AddPadding fills block[dataOffset:] with len(block)-dataOffset copies of
// that count.
func (PKCS7) AddPadding(block []byte, dataOffset int) {
	pad := len(block) - dataOffset
	for i := dataOffset; i < len(block); i++ {
		block[i] = byte(pad)
	}
}

// PadCount returns the value of the block's last byte.
func (PKCS7) PadCount(block []byte) int {
	if len(block) == 0 {
		return 0
	}
	return int(block[len(block)-1])
}

var _ Padding = PKCS7{}
