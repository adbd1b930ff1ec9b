package cipher

import (
	stdcipher "crypto/aes"
	"crypto/cipher"
	"fmt"
)

// BlockCipher is the injected capability EncryptingSink and DecryptingStream
// are parameterised over. A BlockCipher is pre-initialised for a single
// direction (encrypt or decrypt) and, like crypto/cipher.BlockMode, may
// carry chaining state across successive ProcessBlock calls — callers must
// invoke it once per block in stream order.
type BlockCipher interface {
	// BlockSize returns the cipher's atomic unit of operation, in bytes.
	BlockSize() int
	// ProcessBlock transforms exactly one BlockSize()-length block from src
	// into dst. dst and src may be the same slice (in-place).
	ProcessBlock(dst, src []byte)
}

// cbcBlockCipher adapts a crypto/cipher.BlockMode (CBC encrypter or
// decrypter) to the single-block BlockCipher capability by invoking
// CryptBlocks on one block at a time. The BlockMode carries the running
// IV, so blocks must be processed in stream order, exactly as
// ProcessBlock's contract requires.
type cbcBlockCipher struct {
	mode cipher.BlockMode
}

// NewDefaultBlockCipher returns the module's built-in BlockCipher: AES in
// CBC mode, keyed by key (16/24/32 bytes selects AES-128/192/256) and
// chained from iv (must be exactly aes.BlockSize bytes). AES-NI / ARMv8 AES
// hardware acceleration, when present, is used transparently by the Go
// runtime's crypto/aes implementation — see HasAESHardwareSupport.
func NewDefaultBlockCipher(key, iv []byte, encrypt bool) (BlockCipher, error) {
	block, err := stdcipher.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: new aes block cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("cipher: iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}

	var mode cipher.BlockMode
	if encrypt {
		mode = cipher.NewCBCEncrypter(block, iv)
	} else {
		mode = cipher.NewCBCDecrypter(block, iv)
	}
	return &cbcBlockCipher{mode: mode}, nil
}

func (c *cbcBlockCipher) BlockSize() int { return c.mode.BlockSize() }

func (c *cbcBlockCipher) ProcessBlock(dst, src []byte) {
	c.mode.CryptBlocks(dst, src)
}
