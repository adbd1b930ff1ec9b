package cipher

import "io"

// DecryptingStream consumes a stream of ciphertext bytes produced by a
// matching EncryptingSink and emits an io.Reader of plaintext. It holds
// back the most recently decrypted block until it has observed the end of
// the upstream stream, because padding can only be stripped from the
// final block. Chunk boundaries on the output side are not required to
// match those on the input side.
type DecryptingStream struct {
	src     io.Reader
	cipher  BlockCipher
	padding Padding

	ciphertextBuf []byte // scratch, len == block size
	pending       []byte // decrypted block held back until EOF is confirmed
	havePending   bool

	ready []byte // plaintext bytes ready to be copied out by Read
	eof   bool
	err   error
}

// NewDecryptingStream wraps src with a streaming PKCS#7 block decryptor.
func NewDecryptingStream(src io.Reader, c BlockCipher, p Padding) *DecryptingStream {
	return &DecryptingStream{
		src:           src,
		cipher:        c,
		padding:       p,
		ciphertextBuf: make([]byte, c.BlockSize()),
	}
}

// Read implements io.Reader over the decrypted plaintext.
func (s *DecryptingStream) Read(p []byte) (int, error) {
	for {
		if len(s.ready) > 0 {
			n := copy(p, s.ready)
			s.ready = s.ready[n:]
			return n, nil
		}
		if s.err != nil {
			return 0, s.err
		}
		if s.eof {
			return 0, io.EOF
		}
		if err := s.advance(); err != nil {
			s.err = err
			return 0, err
		}
	}
}

// advance reads and decrypts the next ciphertext block, or finalizes the
// stream once the upstream source is exhausted.
func (s *DecryptingStream) advance() error {
	n, err := io.ReadFull(s.src, s.ciphertextBuf)
	switch {
	case err == nil:
		block := make([]byte, len(s.ciphertextBuf))
		s.cipher.ProcessBlock(block, s.ciphertextBuf)
		if s.havePending {
			s.ready = append(s.ready, s.pending...)
		}
		s.pending = block
		s.havePending = true
		return nil

	case err == io.EOF:
		// n == 0: a clean block boundary. Finalize using the held-back
		// block, or fail if no ciphertext was ever seen at all.
		if !s.havePending {
			return newErr(KindMalformedCipherStream, err)
		}
		return s.finalize()

	case err == io.ErrUnexpectedEOF:
		// A partial, non-block-aligned tail: malformed regardless of n.
		return newErr(KindMalformedCipherStream, err)

	default:
		return err
	}
}

func (s *DecryptingStream) finalize() error {
	count := s.padding.PadCount(s.pending)
	if count < 1 || count > len(s.pending) {
		return newErr(KindBadPadding, nil)
	}
	s.ready = s.pending[:len(s.pending)-count]
	s.pending = nil
	s.eof = true
	return nil
}

var _ io.Reader = (*DecryptingStream)(nil)
