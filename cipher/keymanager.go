package cipher

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/ovh/kmip-go"
	"github.com/ovh/kmip-go/payloads"
)

// KeyManager abstracts an external KMS that wraps and unwraps the master
// secret from which DeriveSessionKey derives each session's key and IV.
// Implementations must never expose plaintext wrapping keys; all
// wrap/unwrap operations happen inside the KMS.
type KeyManager interface {
	// Provider returns a short identifier used for diagnostics and audit
	// metadata.
	Provider() string

	// WrapKey encrypts plaintext (a master secret) and returns an
	// envelope suitable for persisting alongside the stream's metadata.
	WrapKey(ctx context.Context, plaintext []byte) (*KeyEnvelope, error)

	// UnwrapKey decrypts the ciphertext in envelope and returns the
	// plaintext master secret.
	UnwrapKey(ctx context.Context, envelope *KeyEnvelope) ([]byte, error)

	// ActiveKeyVersion returns the version of the primary wrapping key.
	ActiveKeyVersion(ctx context.Context) (int, error)

	// HealthCheck verifies the KMS is reachable without performing a real
	// wrap/unwrap.
	HealthCheck(ctx context.Context) error

	// Close releases underlying connections.
	Close(ctx context.Context) error
}

// KeyEnvelope captures what is needed to unwrap a session data key later.
type KeyEnvelope struct {
	KeyID      string
	KeyVersion int
	Provider   string
	Ciphertext []byte
}

// KMIPKeyReference names one wrapping key known to the KMS, by its KMIP
// unique identifier and a locally assigned version number used to pick the
// active key and to support rotation without re-wrapping old envelopes.
type KMIPKeyReference struct {
	ID      string
	Version int
}

// CosmianKMIPOptions configures a KMIP-backed KeyManager.
type CosmianKMIPOptions struct {
	Endpoint       string
	Keys           []KMIPKeyReference
	TLSConfig      *tls.Config
	Timeout        time.Duration
	Provider       string
	DualReadWindow int // stored with the options; UnwrapKey does not consult it
}

// cosmianKMIPManager wraps/unwraps session keys through a KMIP server (for
// example a Cosmian KMS) via the ovh/kmip-go client.
type cosmianKMIPManager struct {
	client   *kmip.Client
	opts     CosmianKMIPOptions
	mu       sync.RWMutex
	byID     map[string]KMIPKeyReference
	active   KMIPKeyReference
}

// NewCosmianKMIPManager dials the configured KMIP endpoint and returns a
// KeyManager backed by it. The entry in opts.Keys with the highest Version
// is treated as active for new WrapKey calls. UnwrapKey accepts an
// envelope for any key version, so in-flight sessions survive a key
// rotation; DualReadWindow does not limit which older versions it accepts.
func NewCosmianKMIPManager(opts CosmianKMIPOptions) (*cosmianKMIPManager, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("cipher: at least one KMIP key reference is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Provider == "" {
		opts.Provider = "cosmian-kmip"
	}

	client, err := kmip.Dial(opts.Endpoint, kmip.WithTLSConfig(opts.TLSConfig), kmip.WithTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("cipher: dial kmip endpoint: %w", err)
	}

	m := &cosmianKMIPManager{
		client: client,
		opts:   opts,
		byID:   make(map[string]KMIPKeyReference, len(opts.Keys)),
	}
	for _, k := range opts.Keys {
		m.byID[k.ID] = k
		if k.Version >= m.active.Version {
			m.active = k
		}
	}
	return m, nil
}

func (m *cosmianKMIPManager) Provider() string { return m.opts.Provider }

func (m *cosmianKMIPManager) WrapKey(ctx context.Context, plaintext []byte) (*KeyEnvelope, error) {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	req := &payloads.EncryptRequestPayload{
		UniqueIdentifier: active.ID,
		Data:             plaintext,
	}
	var resp payloads.EncryptResponsePayload
	if err := m.client.Request(ctx, kmip.OperationEncrypt, req, &resp); err != nil {
		return nil, fmt.Errorf("cipher: kmip encrypt: %w", err)
	}

	return &KeyEnvelope{
		KeyID:      active.ID,
		KeyVersion: active.Version,
		Provider:   m.opts.Provider,
		Ciphertext: resp.Data,
	}, nil
}

func (m *cosmianKMIPManager) UnwrapKey(ctx context.Context, env *KeyEnvelope) ([]byte, error) {
	keyID := env.KeyID
	if keyID == "" {
		// Fallback: resolve the key id from the envelope's recorded version.
		m.mu.RLock()
		for id, ref := range m.byID {
			if ref.Version == env.KeyVersion {
				keyID = id
				break
			}
		}
		m.mu.RUnlock()
		if keyID == "" {
			return nil, fmt.Errorf("cipher: no key reference for version %d", env.KeyVersion)
		}
	}

	req := &payloads.DecryptRequestPayload{
		UniqueIdentifier: keyID,
		Data:             env.Ciphertext,
	}
	var resp payloads.DecryptResponsePayload
	if err := m.client.Request(ctx, kmip.OperationDecrypt, req, &resp); err != nil {
		return nil, fmt.Errorf("cipher: kmip decrypt: %w", err)
	}
	return resp.Data, nil
}

func (m *cosmianKMIPManager) ActiveKeyVersion(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.Version, nil
}

func (m *cosmianKMIPManager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	req := &payloads.GetRequestPayload{UniqueIdentifier: active.ID}
	var resp payloads.GetResponsePayload
	if err := m.client.Request(ctx, kmip.OperationGet, req, &resp); err != nil {
		return fmt.Errorf("cipher: kmip health check: %w", err)
	}
	if resp.ObjectType != kmip.ObjectTypeSymmetricKey {
		return fmt.Errorf("cipher: kmip health check: unexpected object type %v", resp.ObjectType)
	}
	return nil
}

func (m *cosmianKMIPManager) Close(ctx context.Context) error {
	return m.client.Close()
}

var _ KeyManager = (*cosmianKMIPManager)(nil)
