package cipher

import "io"

// EncryptingSink is a byte-in, byte-out sink: it accepts plaintext chunks
// of any size via Add and forwards full ciphertext blocks to a downstream
// io.Writer as soon as block_size bytes have accumulated. Close pads the
// final partial block (always adding between 1 and block_size bytes, even
// when the input is already block-aligned), encrypts it, forwards it, and
// closes the downstream sink.
//
// Total output bytes = ceil((total input bytes + 1) / block_size) * block_size.
type EncryptingSink struct {
	dst     io.Writer
	cipher  BlockCipher
	padding Padding

	block  []byte // scratch buffer, len == block size
	n      int    // bytes of real data currently held in block
	closed bool
}

// NewEncryptingSink wraps dst with a streaming PKCS#7 block encryptor.
func NewEncryptingSink(dst io.Writer, c BlockCipher, p Padding) *EncryptingSink {
	return &EncryptingSink{
		dst:     dst,
		cipher:  c,
		padding: p,
		block:   make([]byte, c.BlockSize()),
	}
}

// Add appends chunk's bytes to the sink. Whenever a full block has
// accumulated it is encrypted in place and written downstream.
func (s *EncryptingSink) Add(chunk []byte) error {
	blockSize := len(s.block)
	for len(chunk) > 0 {
		copied := copy(s.block[s.n:], chunk)
		s.n += copied
		chunk = chunk[copied:]

		if s.n == blockSize {
			s.cipher.ProcessBlock(s.block, s.block)
			if _, err := s.dst.Write(s.block); err != nil {
				return err
			}
			s.n = 0
		}
	}
	return nil
}

// Close pads and encrypts the final block, writes it, and closes the
// downstream sink if it implements io.Closer. It is safe to call once;
// calling it again is a no-op.
func (s *EncryptingSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.padding.AddPadding(s.block, s.n)
	s.cipher.ProcessBlock(s.block, s.block)
	if _, err := s.dst.Write(s.block); err != nil {
		return err
	}

	if c, ok := s.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ io.Closer = (*EncryptingSink)(nil)
