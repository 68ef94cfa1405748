package dagstore

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// durabilityLayer is the checkpoint barrier named in §4.B: every message
// staged via recordInsert and then committed via flush survives a restart,
// reconstructed by replayInto on the next call to New. Backed by goleveldb,
// with a batch accumulating writes between flushes.
type durabilityLayer struct {
	db      *leveldb.DB
	pending *leveldb.Batch
}

var messagesBucketPrefix = []byte("m:")

func openDurabilityLayer(dbPath string) (*durabilityLayer, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &durabilityLayer{db: db, pending: new(leveldb.Batch)}, nil
}

func messageKey(hash externalapi.BlockHash) []byte {
	key := make([]byte, len(messagesBucketPrefix)+externalapi.BlockHashSize)
	n := copy(key, messagesBucketPrefix)
	copy(key[n:], hash[:])
	return key
}

// recordInsert stages m for the next flush. It does not itself provide
// durability: callers must call Storage.Checkpoint to commit the batch.
func (d *durabilityLayer) recordInsert(m *externalapi.Message) error {
	encoded, err := encodeMessage(m)
	if err != nil {
		return errors.Wrapf(err, "failed to encode message %s", m.Hash)
	}
	d.pending.Put(messageKey(m.Hash), encoded)
	return nil
}

// flush commits every staged record in a single atomic leveldb batch write,
// then clears the batch.
func (d *durabilityLayer) flush() error {
	if d.pending.Len() == 0 {
		return nil
	}
	if err := d.db.Write(d.pending, nil); err != nil {
		return errors.WithStack(err)
	}
	d.pending = new(leveldb.Batch)
	return nil
}

// replayInto loads every committed message record back into s, in
// arbitrary order, re-running Insert so every index is rebuilt exactly as
// it would be from a live stream of inserts. The replay relies on
// ancestors being replayed before descendants; since leveldb iterates keys
// in lexicographic hash order rather than rank order, replay retries
// messages whose dependencies haven't been seen yet until a full pass makes
// no progress.
func (d *durabilityLayer) replayInto(s *Storage) error {
	iter := d.db.NewIterator(nil, nil)
	defer iter.Release()

	var pending []*externalapi.Message
	for iter.Next() {
		m, err := decodeMessage(iter.Value())
		if err != nil {
			return errors.WithStack(err)
		}
		pending = append(pending, m)
	}
	if err := iter.Error(); err != nil {
		return errors.WithStack(err)
	}

	for len(pending) > 0 {
		progressed := false
		var next []*externalapi.Message
		for _, m := range pending {
			if _, err := s.Insert(m); err != nil {
				next = append(next, m)
				continue
			}
			progressed = true
		}
		if !progressed {
			return errors.Errorf("replay stalled with %d unresolved messages", len(next))
		}
		pending = next
	}
	return nil
}

func (d *durabilityLayer) clear() {
	d.pending = new(leveldb.Batch)
	iter := d.db.NewIterator(nil, nil)
	defer iter.Release()
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	_ = d.db.Write(batch, nil)
}

func (d *durabilityLayer) close() error {
	return errors.WithStack(d.db.Close())
}

// encodeMessage writes a fixed-layout binary record. Not self-describing
// beyond the fields Message itself carries; a schema change here is a
// storage format change.
func encodeMessage(m *externalapi.Message) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, m.Hash[:]...)
	buf = appendString(buf, string(m.ValidatorID))
	buf = appendHashes(buf, m.Parents)
	buf = appendHashes(buf, m.Justifications)
	buf = appendUint64(buf, m.Rank)
	buf = appendUint64(buf, m.JRank)
	buf = appendUint64(buf, m.SequenceNumber)
	buf = append(buf, m.ValidatorPrevBlockHash[:]...)
	buf = appendBool(buf, m.HasValidatorPrevBlock)
	buf = appendUint64(buf, m.TimestampMillis)
	buf = append(buf, m.KeyBlockHash[:]...)
	buf = appendUint32(buf, uint32(m.MessageType))
	buf = append(buf, m.BodyHash[:]...)
	buf = append(buf, m.PostStateHash[:]...)
	buf = appendUint32(buf, m.ProtocolVersion)
	buf = appendString(buf, m.ChainName)
	buf = appendString(buf, string(m.SignatureAlgorithm))
	buf = appendBytes(buf, m.Signature)
	return buf, nil
}

func decodeMessage(b []byte) (*externalapi.Message, error) {
	r := &byteReader{buf: b}
	m := &externalapi.Message{}

	hash, err := r.readHash()
	if err != nil {
		return nil, err
	}
	m.Hash = hash

	validatorID, err := r.readString()
	if err != nil {
		return nil, err
	}
	m.ValidatorID = externalapi.ValidatorID(validatorID)

	if m.Parents, err = r.readHashes(); err != nil {
		return nil, err
	}
	if m.Justifications, err = r.readHashes(); err != nil {
		return nil, err
	}
	if m.Rank, err = r.readUint64(); err != nil {
		return nil, err
	}
	if m.JRank, err = r.readUint64(); err != nil {
		return nil, err
	}
	if m.SequenceNumber, err = r.readUint64(); err != nil {
		return nil, err
	}
	if m.ValidatorPrevBlockHash, err = r.readHash(); err != nil {
		return nil, err
	}
	if m.HasValidatorPrevBlock, err = r.readBool(); err != nil {
		return nil, err
	}
	if m.TimestampMillis, err = r.readUint64(); err != nil {
		return nil, err
	}
	if m.KeyBlockHash, err = r.readHash(); err != nil {
		return nil, err
	}
	messageType, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	m.MessageType = externalapi.MessageType(messageType)
	if m.BodyHash, err = r.readHash(); err != nil {
		return nil, err
	}
	if m.PostStateHash, err = r.readHash(); err != nil {
		return nil, err
	}
	if m.ProtocolVersion, err = r.readUint32(); err != nil {
		return nil, err
	}
	if m.ChainName, err = r.readString(); err != nil {
		return nil, err
	}
	sigAlg, err := r.readString()
	if err != nil {
		return nil, err
	}
	m.SignatureAlgorithm = externalapi.SignatureAlgorithm(sigAlg)
	if m.Signature, err = r.readBytes(); err != nil {
		return nil, err
	}
	return m, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendBytes(buf []byte, v []byte) []byte {
	buf = appendUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

func appendString(buf []byte, v string) []byte {
	return appendBytes(buf, []byte(v))
}

func appendHashes(buf []byte, hashes []externalapi.BlockHash) []byte {
	buf = appendUint32(buf, uint32(len(hashes)))
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return errors.Errorf("durability record truncated: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *byteReader) readHash() (externalapi.BlockHash, error) {
	var h externalapi.BlockHash
	if err := r.need(externalapi.BlockHashSize); err != nil {
		return h, err
	}
	copy(h[:], r.buf[r.pos:r.pos+externalapi.BlockHashSize])
	r.pos += externalapi.BlockHashSize
	return h, nil
}

func (r *byteReader) readUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *byteReader) readUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readBool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *byteReader) readBytes() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	v := append([]byte(nil), r.buf[r.pos:r.pos+int(n)]...)
	r.pos += int(n)
	return v, nil
}

func (r *byteReader) readString() (string, error) {
	b, err := r.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *byteReader) readHashes() ([]externalapi.BlockHash, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]externalapi.BlockHash, n)
	for i := range out {
		if out[i], err = r.readHash(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
