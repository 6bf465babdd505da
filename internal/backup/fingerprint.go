package backup

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"hash"
	"sync"

	"github.com/tabular/shotsmarts/internal/storage"
)

// Fingerprint of an empty collection.
const emptyFingerprint = "empty"

// fingerprinter hashes record collections for change detection.
type fingerprinter struct {
	hasher hash.Hash
}

var hasherPool = sync.Pool{
	New: func() interface{} {
		return &fingerprinter{hasher: md5.New()}
	},
}

func getFingerprinter() *fingerprinter {
	return hasherPool.Get().(*fingerprinter)
}

func putFingerprinter(f *fingerprinter) {
	f.hasher.Reset()
	hasherPool.Put(f)
}

// Fingerprint returns an md5 digest over every field of records, in order.
func Fingerprint(records []storage.Record) string {
	if len(records) == 0 {
		return emptyFingerprint
	}

	f := getFingerprinter()
	defer putFingerprinter(f)

	f.hasher.Reset()
	binary.Write(f.hasher, binary.LittleEndian, int32(len(records)))
	for i := range records {
		f.hashRecord(&records[i])
	}
	return fmt.Sprintf("%x", f.hasher.Sum(nil))
}

func (f *fingerprinter) hashRecord(rec *storage.Record) {
	f.hasher.Write(rec.ID[:])
	f.writeString(rec.Name)
	binary.Write(f.hasher, binary.LittleEndian, rec.Date.UnixNano())
	f.writeString(rec.Notes)

	f.writeString(string(rec.LightCondition))
	binary.Write(f.hasher, binary.LittleEndian, rec.ISO)
	f.writeString(string(rec.SceneMode))

	binary.Write(f.hasher, binary.LittleEndian, rec.Aperture)
	binary.Write(f.hasher, binary.LittleEndian, rec.ShutterSpeed)
	f.writeString(string(rec.MeteringMode))
	binary.Write(f.hasher, binary.LittleEndian, rec.ExposureCompensation)
}

// writeString length-prefixes s so adjacent fields cannot run together.
func (f *fingerprinter) writeString(s string) {
	binary.Write(f.hasher, binary.LittleEndian, int32(len(s)))
	f.hasher.Write([]byte(s))
}
