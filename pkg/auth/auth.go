// Package auth decides which API keys may use the management endpoints.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/i5heu/ouroboros-vault/internal/keyValStore"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAuthRejected is returned by Check for a missing or unknown key.
	ErrAuthRejected = errors.New("auth: api key rejected")
	// ErrKeySet wraps failures of the key set itself, e.g. an unreadable
	// secrets file.
	ErrKeySet = errors.New("auth: key set unavailable")
)

// KeySet answers whether an API key is accepted.
type KeySet interface {
	Contains(ctx context.Context, key string) (bool, error)
}

// Check returns nil if key is accepted by keys, ErrAuthRejected if it is not
// and an ErrKeySet wrapped error if the key set could not be consulted.
func Check(ctx context.Context, keys KeySet, key string) error {
	if key == "" {
		return fmt.Errorf("%w: no api key", ErrAuthRejected)
	}
	ok, err := keys.Contains(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeySet, err)
	}
	if !ok {
		return ErrAuthRejected
	}
	return nil
}

// Secrets is the layout of the secrets file.
type Secrets struct {
	APIKeys []string `json:"APIKeys"`
}

// ReadSecrets parses a secrets file.
func ReadSecrets(path string) (Secrets, error) {
	var s Secrets
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// FileKeySet reads the secrets file on every lookup so that key rotations
// apply without a restart. A missing file accepts no keys.
type FileKeySet struct {
	Path string
}

func (f FileKeySet) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s, err := ReadSecrets(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, k := range s.APIKeys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

// StaticKeySet is a fixed in-memory key set.
type StaticKeySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewStaticKeySet(keys ...string) *StaticKeySet {
	s := &StaticKeySet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

func (s *StaticKeySet) Contains(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *StaticKeySet) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

const storePrefix = "apikey/"

// StoreKeySet keeps the accepted keys in a key value store.
type StoreKeySet struct {
	kv  *keyValStore.KeyValStore
	log *logrus.Logger
}

func NewStoreKeySet(kv *keyValStore.KeyValStore, log *logrus.Logger) *StoreKeySet {
	if log == nil {
		log = logrus.New()
	}
	return &StoreKeySet{kv: kv, log: log}
}

func storeKey(key string) []byte {
	return []byte(storePrefix + key)
}

func (s *StoreKeySet) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.kv.Exists(storeKey(key))
}

func (s *StoreKeySet) Add(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("auth: empty api key")
	}
	return s.kv.Write(storeKey(key), nil)
}

func (s *StoreKeySet) Remove(key string) error {
	return s.kv.Delete(storeKey(key))
}

// Keys lists the stored keys in lexical order.
func (s *StoreKeySet) Keys() ([]string, error) {
	items, err := s.kv.GetItemsWithPrefix([]byte(storePrefix))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, strings.TrimPrefix(string(item[0]), storePrefix))
	}
	return keys, nil
}

// ImportFile adds every key of a secrets file and returns how many were read.
func (s *StoreKeySet) ImportFile(path string) (int, error) {
	secrets, err := ReadSecrets(path)
	if err != nil {
		return 0, err
	}

	batch := make([][2][]byte, 0, len(secrets.APIKeys))
	for _, k := range secrets.APIKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		batch = append(batch, [2][]byte{storeKey(k), nil})
	}
	if err := s.kv.WriteBatch(batch); err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"path": path,
		"keys": len(batch),
	}).Info("imported api keys")
	return len(batch), nil
}

// AnyKeySet accepts a key if any of its sets does. Errors of a set are only
// returned when no set accepted the key.
type AnyKeySet []KeySet

func (a AnyKeySet) Contains(ctx context.Context, key string) (bool, error) {
	var errs []error
	for _, set := range a {
		ok, err := set.Contains(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
