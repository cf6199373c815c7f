package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"cipherchat/internal/domain"
)

var (
	bucketUsers   = []byte("users")
	bucketPubkeys = []byte("pubkeys")
)

// BoltUserStore persists user records in a bolt database.
type BoltUserStore struct {
	db *bolt.DB
}

// OpenBoltUserStore opens or creates the database at path.
func OpenBoltUserStore(path string) (*BoltUserStore, error) {
	db, err := bolt.Open(filepath.Clean(path), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketPubkeys} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init user store: %w", err)
	}
	return &BoltUserStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltUserStore) Close() error { return s.db.Close() }

// CreateUser inserts record. Username and public key hash must both be unused.
func (s *BoltUserStore) CreateUser(record domain.UserRecord) error {
	name := userKey(record.Username)
	hash := []byte(strings.ToLower(record.PublicKeyHash.String()))
	val, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		keys := tx.Bucket(bucketPubkeys)
		if users == nil || keys == nil {
			return bolt.ErrBucketNotFound
		}
		if users.Get(name) != nil {
			return domain.ErrUserExists
		}
		if keys.Get(hash) != nil {
			return domain.ErrPublicKeyTaken
		}
		if err := users.Put(name, val); err != nil {
			return err
		}
		return keys.Put(hash, name)
	})
}

// GetUser returns the record for username, if any.
func (s *BoltUserStore) GetUser(username domain.Username) (domain.UserRecord, bool, error) {
	var (
		rec   domain.UserRecord
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		v := b.Get(userKey(username))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return domain.UserRecord{}, false, err
	}
	return rec, found, nil
}

// GetUserByPublicKeyHash resolves hash through the key index.
func (s *BoltUserStore) GetUserByPublicKeyHash(hash domain.PublicKeyHash) (domain.UserRecord, bool, error) {
	var (
		rec   domain.UserRecord
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		keys := tx.Bucket(bucketPubkeys)
		users := tx.Bucket(bucketUsers)
		if keys == nil || users == nil {
			return bolt.ErrBucketNotFound
		}
		name := keys.Get([]byte(strings.ToLower(hash.String())))
		if name == nil {
			return nil
		}
		v := users.Get(name)
		if v == nil {
			return fmt.Errorf("key index points at missing user %q", name)
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return domain.UserRecord{}, false, err
	}
	return rec, found, nil
}

// Count returns the number of registered users.
func (s *BoltUserStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

func userKey(u domain.Username) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(u.String())))
}

// Compile-time assertion that BoltUserStore implements domain.UserStore.
var _ domain.UserStore = (*BoltUserStore)(nil)
