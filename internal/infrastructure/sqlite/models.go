package sqlite

import "time"

// EntryModel is one row of the entries table.
type EntryModel struct {
	Key       string
	Value     []byte
	UpdatedAt int64 // Unix timestamp
}

func newEntryModel(key string, value []byte) EntryModel {
	return EntryModel{Key: key, Value: value, UpdatedAt: time.Now().Unix()}
}
