package atom

import (
	"github.com/google/uuid"
	"github.com/mediocregopher/atom/mdb/mredis"
)

// Reference is a set of server-side Redis keys holding a copy of one stream
// entry's fields (section 4.10), subject to an optional TTL that Redis
// itself enforces. It records the keys and the TTL they were created with;
// it does not record when the reference was created.
type Reference struct {
	// Fields maps each copied field name to the Redis key its value was
	// stored under, in the source entry's original field order (supplemented
	// from original_source's ElementResponse.h/element_read_map.h, which
	// preserve field order when materializing a reference).
	Fields []ReferenceField
	TTLMS  int64
}

// ReferenceField is one entry field copied into a reference key.
type ReferenceField struct {
	Name string
	Key  string
}

// CreateReferenceFromStream implements create_reference_from_stream
// (section 4.10): it reads the entry named by id (or the newest entry if
// id is empty) from streamKey, SETs each of its fields into a fresh
// ref:<uuid>:<field> key with an optional PX ttlMS, and returns the
// resulting field->key mapping. ttlMS of 0 means no expiry.
func CreateReferenceFromStream(wire *mredis.Wire, streamKey, id string, ttlMS int64) (Reference, *Error) {
	var entry Entry
	if id == "" {
		entries, err := EntryReadN(wire, streamKey, 1)
		if err != nil {
			return Reference{}, err
		}
		if len(entries) == 0 {
			return Reference{}, newKindError(KindInvalidCommand, "stream has no entries to reference: "+streamKey)
		}
		entry = entries[0]
	} else {
		entries, err := wire.XRange(streamKey, id, id, 1)
		if err != nil {
			return Reference{}, WrapRedis(err)
		}
		if len(entries) == 0 {
			return Reference{}, newKindError(KindInvalidCommand, "no such entry id in stream: "+id)
		}
		entry = fromWireEntry(entries[0])
	}

	refID := uuid.NewString()
	fields := make([]ReferenceField, 0, len(entry.Fields))
	for _, f := range entry.Fields {
		key := "ref:" + refID + ":" + f.Key
		var err error
		if ttlMS > 0 {
			err = wire.SetPX(key, string(f.Value), ttlMS)
		} else {
			err = wire.Set(key, string(f.Value))
		}
		if err != nil {
			return Reference{}, WrapRedis(err)
		}
		fields = append(fields, ReferenceField{Name: f.Key, Key: key})
	}

	return Reference{Fields: fields, TTLMS: ttlMS}, nil
}

// GetReference implements get_reference (section 4.10): a bulk GET of the
// given reference keys, returning each value in the same order, or false
// in the corresponding ok slot if a key has expired or never existed.
func GetReference(wire *mredis.Wire, keys []string) ([][]byte, []bool, *Error) {
	values := make([][]byte, len(keys))
	oks := make([]bool, len(keys))
	for i, k := range keys {
		v, ok, err := wire.Get(k)
		if err != nil {
			return nil, nil, WrapRedis(err)
		}
		values[i] = []byte(v)
		oks[i] = ok
	}
	return values, oks, nil
}

// GetReferenceTimeout implements get_reference_timeout (section 4.10):
// the remaining TTL in milliseconds of key, via PTTL. A return of -1 means
// no expiry is set; -2 means the key does not exist.
func GetReferenceTimeout(wire *mredis.Wire, key string) (int64, *Error) {
	ms, err := wire.PTTL(key)
	if err != nil {
		return 0, WrapRedis(err)
	}
	return ms, nil
}

// UpdateReferenceTimeout implements update_reference_timeout (section
// 4.10): resets key's TTL to ttlMS milliseconds via PEXPIRE, returning
// false if key did not exist.
func UpdateReferenceTimeout(wire *mredis.Wire, key string, ttlMS int64) (bool, *Error) {
	ok, err := wire.PExpire(key, ttlMS)
	if err != nil {
		return false, WrapRedis(err)
	}
	return ok, nil
}
