package engine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"Atelier/internal/ledger"
	"Atelier/internal/storage"
)

// Key prefixes owned by the event log.
var (
	prefixEvent   = []byte("e:") // e:<seq> -> Event
	keyEventCount = []byte("m:events")
)

// errStop ends a scan early without reporting an error.
var errStop = errors.New("stop")

// appendEvents assigns the next sequence numbers to events and stages them
// in tx together with the new log length.
func appendEvents(tx *ledger.Tx, events []ledger.Event) ([]ledger.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	seq, err := readEventCount(tx)
	if err != nil {
		return nil, err
	}

	out := make([]ledger.Event, len(events))
	for i, ev := range events {
		seq++
		ev.Seq = seq

		if err := tx.Set(makeEventKey(seq), ledger.EncodeEvent(ev)); err != nil {
			return nil, fmt.Errorf("write event %d:\n%w", seq, err)
		}

		out[i] = ev
	}

	if err := tx.Set(keyEventCount, encodeUint64(seq)); err != nil {
		return nil, fmt.Errorf("write event count:\n%w", err)
	}

	return out, nil
}

// readEventCount returns the sequence number of the last logged event.
func readEventCount(rd storage.Reader) (uint64, error) {
	data, err := rd.Get(keyEventCount)
	if err != nil {
		return 0, fmt.Errorf("read event count:\n%w", err)
	}
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt event count: %d bytes", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

// scanEvents returns up to limit logged events starting at sequence from.
// A limit of zero means no limit.
func scanEvents(db *storage.Storage, from uint64, limit int) ([]ledger.Event, error) {
	if from == 0 {
		from = 1
	}

	var out []ledger.Event

	err := db.IterateRange(makeEventKey(from), storage.PrefixUpperBound(prefixEvent), func(key, value []byte) error {
		ev, err := ledger.DecodeEvent(value)
		if err != nil {
			return fmt.Errorf("decode event %x:\n%w", key[len(prefixEvent):], err)
		}

		out = append(out, ev)

		if limit > 0 && len(out) >= limit {
			return errStop
		}

		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("scan events:\n%w", err)
	}

	return out, nil
}

// makeEventKey builds "e:" + big-endian seq so the log iterates in order.
func makeEventKey(seq uint64) []byte {
	key := make([]byte, len(prefixEvent)+8)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], seq)

	return key
}

// encodeUint64 returns the big-endian encoding of v.
func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)

	return buf
}
