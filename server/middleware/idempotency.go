package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketResponses = []byte("responses")

// DefaultIdempotencyTTL bounds how long a cached response stays replayable.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore persists response envelopes keyed by Idempotency-Key header.
type IdempotencyStore struct {
	db  *bolt.DB
	ttl time.Duration
}

type idempotencyRecord struct {
	StatusCode int       `json:"statusCode"`
	Body       []byte    `json:"body"`
	StoredAt   time.Time `json:"storedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// OpenIdempotencyStore initialises the BoltDB-backed response cache.
func OpenIdempotencyStore(path string, ttl time.Duration) (*IdempotencyStore, error) {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &IdempotencyStore{db: db, ttl: ttl}, nil
}

// Close releases the underlying Bolt database handle.
func (s *IdempotencyStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// lookup returns the cached response for a key when it has not expired.
func (s *IdempotencyStore) lookup(key string, now time.Time) (idempotencyRecord, bool, error) {
	var record idempotencyRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketResponses)
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		if now.After(record.ExpiresAt) {
			record = idempotencyRecord{}
			return bucket.Delete([]byte(key))
		}
		return nil
	})
	if err != nil {
		return idempotencyRecord{}, false, err
	}
	if record.StatusCode == 0 && len(record.Body) == 0 {
		return idempotencyRecord{}, false, nil
	}
	return record, true, nil
}

// save stores the response envelope for the supplied key.
func (s *IdempotencyStore) save(key string, record idempotencyRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketResponses).Put([]byte(key), payload)
	})
}

// WithIdempotency replays cached responses for requests carrying a seen Idempotency-Key.
func WithIdempotency(store *IdempotencyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now().UTC()
			cached, ok, err := store.lookup(key, now)
			if err != nil {
				logger.Warn("idempotency lookup failed", "error", err, "key", key)
			}
			if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotency-Replayed", "true")
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)
				return
			}

			recorder := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}
			record := idempotencyRecord{
				StatusCode: status,
				Body:       recorder.buf,
				StoredAt:   now,
				ExpiresAt:  now.Add(store.ttl),
			}
			if err := store.save(key, record); err != nil {
				logger.Warn("idempotency save failed", "error", err, "key", key)
			}
		})
	}
}

// responseRecorder captures the response so it can be replayed later.
type responseRecorder struct {
	http.ResponseWriter
	buf    []byte
	status int
}

func (rr *responseRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.buf = append(rr.buf, b...)
	return rr.ResponseWriter.Write(b)
}
