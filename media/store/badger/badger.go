package badger

import (
	"encoding/json"

	"github.com/dgraph-io/badger"

	"github.com/objbus/objbus/media/store"
)

var devicePrefix = []byte("device:")

// Open returns a store.Store implementation using Badger as the storage
// driver. The store should be .Close()'d after use.
func Open(opts badger.Options) (*badgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerStore{db: db}, nil
}

// Assert Store implementation
var _ store.Store = &badgerStore{}

type badgerStore struct {
	db *badger.DB
}

func deviceKey(address string) []byte {
	return append(devicePrefix[:len(devicePrefix):len(devicePrefix)], address...)
}

func (s *badgerStore) SetDevice(device store.Device) error {
	value, err := json.Marshal(device)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deviceKey(device.Address), value)
	})
}

func (s *badgerStore) GetDevice(address string) (store.Device, error) {
	var device store.Device
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deviceKey(address))
		if err == badger.ErrKeyNotFound {
			return store.ErrUnknownDevice
		}
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(value, &device)
	})
	return device, err
}

func (s *badgerStore) Devices() ([]store.Device, error) {
	var r []store.Device
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(devicePrefix); it.ValidForPrefix(devicePrefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var device store.Device
			if err := json.Unmarshal(value, &device); err != nil {
				return err
			}
			r = append(r, device)
		}
		return nil
	})
	return r, err
}

func (s *badgerStore) RemoveDevice(address string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(deviceKey(address)); err == badger.ErrKeyNotFound {
			return store.ErrUnknownDevice
		} else if err != nil {
			return err
		}
		return txn.Delete(deviceKey(address))
	})
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
