package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/creditstream/ambient/auditlog"
	"github.com/kenneth/creditstream/ambient/sessionregistry"
	"github.com/kenneth/creditstream/ambient/tracefilter"
	"github.com/kenneth/creditstream/cipher"
	"github.com/kenneth/creditstream/config"
	"github.com/kenneth/creditstream/creditstream"
	"github.com/kenneth/creditstream/metrics"
	"github.com/kenneth/creditstream/sink"
	"github.com/kenneth/creditstream/tracing"
)

// Handler serves the demo gateway's streaming endpoints: a POST /stream
// request body is encrypted chunk-by-chunk through a CreditStream and
// either echoed back to the caller or uploaded to an optional S3 sink,
// generalizing the teacher's S3-passthrough Handler to this module's
// encrypt-while-streaming primitive.
type Handler struct {
	logger       *logrus.Logger
	metrics      *metrics.Metrics
	audit        auditlog.Logger
	registry     *sessionregistry.Registry // nil when Redis is not configured
	s3Sink       *sink.S3Sink              // nil when no -sink flag was given
	s3Target     sink.Target
	cfgWatcher   *config.Watcher
	traceFilter  *tracefilter.Filter
	masterSecret []byte
	instanceID   string
}

func (h *Handler) registerRoutes(r *mux.Router) {
	r.HandleFunc("/health", metrics.HealthHandler()).Methods(http.MethodGet)
	r.HandleFunc("/ready", metrics.ReadinessHandler(nil)).Methods(http.MethodGet)
	r.HandleFunc("/live", metrics.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stream", h.handleStream).Methods(http.MethodPost)
}

// handleStream encrypts the request body through a CreditStream and
// writes the ciphertext to the response, or to the configured S3 sink if
// one was set up at startup.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessionID := r.Header.Get("X-Session-Id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := tracing.StartSession(r.Context(), sessionID)
	defer span.End()

	if h.registry != nil {
		if err := h.registry.Register(ctx, sessionID, h.instanceID); err != nil {
			h.logger.WithError(err).Warn("session registry: register failed")
		}
	}
	h.audit.LogSpawn(sessionID)

	key, iv, err := cipher.DeriveSessionKey(h.masterSecret, sessionID, 32)
	if err != nil {
		http.Error(w, "key derivation failed", http.StatusInternalServerError)
		return
	}
	blockCipher, err := cipher.NewDefaultBlockCipher(key, iv, true)
	if err != nil {
		http.Error(w, "cipher init failed", http.StatusInternalServerError)
		return
	}

	cfg := h.cfgWatcher.Current()
	obs := newGatewayObserver(h.metrics, h.traceFilter, h.workerNameFor(sessionID), h.logger)

	bodyStream := creditstream.NewByteStream(func(ctx context.Context, p *creditstream.ProducerHandle[[]byte]) error {
		buf := make([]byte, 32*1024)
		for {
			n, readErr := r.Body.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				if sendErr := p.Send(ctx, chunk); sendErr != nil {
					return sendErr
				}
			}
			if readErr == io.EOF {
				return nil
			}
			if readErr != nil {
				return readErr
			}
		}
	}, cfg.Buffer.DefaultBudgetBytes, creditstream.WithSessionID(sessionID), creditstream.WithObserver(obs))

	toS3 := h.s3Sink != nil
	dst, finish := h.destinationFor(ctx, sessionID, w)
	encSink := cipher.NewEncryptingSink(dst, blockCipher, cipher.PKCS7{})

	var totalBytes int64
	streamErr := drainIntoSink(ctx, bodyStream, encSink, &totalBytes)
	h.metrics.AddBytesStreamed(ctx, sessionID, int(totalBytes))
	h.metrics.RecordCipherOperation("encrypt")
	closeErr := encSink.Close()
	if streamErr == nil {
		streamErr = closeErr
	}
	if streamErr != nil {
		h.metrics.RecordCipherError("encrypt", "stream_failed")
	}

	outcome := "eof"
	if streamErr != nil {
		outcome = "worker_fault"
	}
	uploadErr := finish(streamErr == nil)
	if streamErr == nil {
		streamErr = uploadErr
	}

	duration := time.Since(start)
	h.metrics.ObserveSessionDuration(sessionID, outcome, duration.Seconds())
	h.audit.LogDone(sessionID, outcome, totalBytes, duration, streamErr)
	if h.registry != nil {
		status := sessionregistry.StatusDone
		if streamErr != nil {
			status = sessionregistry.StatusFaulted
		}
		if err := h.registry.SetStatus(ctx, sessionID, status); err != nil {
			h.logger.WithError(err).Warn("session registry: set status failed")
		}
	}

	if streamErr != nil {
		h.logger.WithError(streamErr).WithField("session_id", sessionID).Error("stream session failed")
		http.Error(w, "stream failed", http.StatusInternalServerError)
		return
	}

	if toS3 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"session_id":%q,"bucket":%q,"key":%q}`, sessionID, h.s3Target.Bucket, h.s3Target.Key+"/"+sessionID)
	}
}

// destinationFor picks where ciphertext is written: the HTTP response, or
// a pipe feeding an S3 upload running concurrently in a goroutine. finish
// waits for the upload (if any) to complete and reports its error.
func (h *Handler) destinationFor(ctx context.Context, sessionID string, w http.ResponseWriter) (io.Writer, func(ok bool) error) {
	if h.s3Sink == nil {
		w.Header().Set("Content-Type", "application/octet-stream")
		return w, func(bool) error { return nil }
	}

	pr, pw := io.Pipe()
	uploadErr := make(chan error, 1)
	go func() {
		target := h.s3Target
		target.Key = fmt.Sprintf("%s/%s", target.Key, sessionID)
		uploadErr <- h.s3Sink.Upload(ctx, target, pr, sessionID, 1)
	}()

	return pw, func(ok bool) error {
		if ok {
			pw.Close()
		} else {
			pw.CloseWithError(fmt.Errorf("streamgateway: upstream session failed before upload completed"))
		}
		return <-uploadErr
	}
}

func (h *Handler) workerNameFor(sessionID string) string {
	return "stream-" + sessionID
}

// drainIntoSink reads every value out of bodyStream and feeds it to sink,
// counting the plaintext bytes consumed.
func drainIntoSink(ctx context.Context, bodyStream *creditstream.Stream[[]byte], dst interface{ Add([]byte) error }, total *int64) error {
	for {
		chunk, err := bodyStream.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		*total += int64(len(chunk))
		if err := dst.Add(chunk); err != nil {
			return err
		}
	}
}
