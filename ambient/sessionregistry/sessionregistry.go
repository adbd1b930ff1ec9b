// Package sessionregistry tracks the live status of creditstream
// sessions in Redis, so a fleet of gateway instances can answer "is
// session X still running, and on which instance" without a shared
// in-process map.
package sessionregistry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the lifecycle state of a registered session.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusKilled  Status = "killed"
	StatusFaulted Status = "worker_fault"
)

// keyPrefix namespaces session registry keys in the shared Redis
// keyspace so they cannot collide with unrelated application data.
const keyPrefix = "creditstream:session:"

// Registry records session status in Redis with a TTL, so a crashed
// instance's sessions age out instead of lingering forever.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Registry backed by client. ttl bounds how long a
// session's entry survives without being refreshed; zero means never
// expire (callers must call Forget explicitly).
func New(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Register marks sessionID as running on this instance and starts the TTL.
func (r *Registry) Register(ctx context.Context, sessionID, instance string) error {
	k := key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k,
		"status", string(StatusRunning),
		"instance", instance,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SetStatus transitions sessionID to status and refreshes the TTL.
func (r *Registry) SetStatus(ctx context.Context, sessionID string, status Status) error {
	k := key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k, "status", string(status), "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SessionInfo is the registry's view of one session.
type SessionInfo struct {
	SessionID string
	Status    Status
	Instance  string
	UpdatedAt time.Time
}

// Lookup returns the recorded status of sessionID, or ok=false if it has
// no entry (never registered, or expired).
func (r *Registry) Lookup(ctx context.Context, sessionID string) (info SessionInfo, ok bool, err error) {
	fields, err := r.client.HGetAll(ctx, key(sessionID)).Result()
	if err != nil {
		return SessionInfo{}, false, err
	}
	if len(fields) == 0 {
		return SessionInfo{}, false, nil
	}

	info = SessionInfo{
		SessionID: sessionID,
		Status:    Status(fields["status"]),
		Instance:  fields["instance"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		info.UpdatedAt = ts
	}
	return info, true, nil
}

// Forget removes sessionID's entry immediately, rather than waiting for
// it to expire.
func (r *Registry) Forget(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, key(sessionID)).Err()
}

// Ping verifies connectivity to Redis, surfacing a wrapped error with
// enough context to diagnose a misconfigured endpoint.
func (r *Registry) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("sessionregistry: ping: %w", err)
	}
	return nil
}
