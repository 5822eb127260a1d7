package zset

import (
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// MarshalMsgpack encodes z as its entry list, sorted by canonical key, so the wire form never
// depends on zset's internal map layout. It implements msgpack.CustomEncoder.
func (z *ZSet) MarshalMsgpack() ([]byte, error) {
	keys := make([]string, 0, len(z.counts))
	for key := range z.counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, Entry{Document: DeepCopyDocument(z.docs[key]), Weight: z.counts[key]})
	}
	return msgpack.Marshal(entries)
}

// UnmarshalMsgpack rebuilds z from a previously marshaled entry list. It implements
// msgpack.CustomDecoder.
func (z *ZSet) UnmarshalMsgpack(data []byte) error {
	var entries []Entry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return newError("failed to decode Z-set", err)
	}
	rebuilt := New()
	for _, e := range entries {
		if err := rebuilt.AddMutate(e.Document, e.Weight); err != nil {
			return newError("failed to rebuild Z-set", err)
		}
	}
	*z = *rebuilt
	return nil
}
