package ids

import (
	"strconv"
	"time"
)

// TimeLayout is the fixed rendering used for every timestamp the monitor
// records: build times, mtimes and ctimes. Microsecond precision, host-local.
const TimeLayout = "2006-01-02 15:04:05.000000"

// Hash algorithm names, as they appear in the serialized FileRecord.
const (
	AlgMD5    = "md5"
	AlgSHA256 = "sha256"
	AlgSHA512 = "sha512"
)

// FormatTime renders t with TimeLayout in the host's local zone.
func FormatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}

// FileRecord is the fingerprint of one monitored path.
// All numeric metadata is kept as decimal strings so equality never depends
// on the integer width of the host that produced the record.
type FileRecord struct {
	SHA512       string `json:"sha512"`
	SHA256       string `json:"sha256"`
	MD5          string `json:"md5"`
	LastModified string `json:"last_modified"`
	CreationTime string `json:"creation_time"`
	Owner        string `json:"owner"`
	GroupOwner   string `json:"group_owner"`
	Size         string `json:"size"`
}

// StatData holds the metadata fields a FileRecord needs from one stat call.
type StatData struct {
	Size    int64
	UID     int64
	GID     int64
	ModTime time.Time
	Ctime   time.Time
}

// Hashes returns the digests keyed by algorithm name.
func (r *FileRecord) Hashes() map[string]string {
	return map[string]string{
		AlgMD5:    r.MD5,
		AlgSHA256: r.SHA256,
		AlgSHA512: r.SHA512,
	}
}

// Equal reports whether every field of r and o is identical.
// A nil record is only equal to another nil record.
func (r *FileRecord) Equal(o *FileRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	return *r == *o
}

// DiffFields returns the serialized names of the fields that differ between r and o.
func (r *FileRecord) DiffFields(o *FileRecord) []string {
	if r == nil || o == nil {
		return nil
	}
	var fields []string
	add := func(name, a, b string) {
		if a != b {
			fields = append(fields, name)
		}
	}
	add(AlgSHA512, r.SHA512, o.SHA512)
	add(AlgSHA256, r.SHA256, o.SHA256)
	add(AlgMD5, r.MD5, o.MD5)
	add("last_modified", r.LastModified, o.LastModified)
	add("creation_time", r.CreationTime, o.CreationTime)
	add("owner", r.Owner, o.Owner)
	add("group_owner", r.GroupOwner, o.GroupOwner)
	add("size", r.Size, o.Size)
	return fields
}

// newFileRecord assembles a record from finalized digests and stat data.
func newFileRecord(md5Hex, sha256Hex, sha512Hex string, st *StatData) *FileRecord {
	return &FileRecord{
		SHA512:       sha512Hex,
		SHA256:       sha256Hex,
		MD5:          md5Hex,
		LastModified: FormatTime(st.ModTime),
		CreationTime: FormatTime(st.Ctime),
		Owner:        strconv.FormatInt(st.UID, 10),
		GroupOwner:   strconv.FormatInt(st.GID, 10),
		Size:         strconv.FormatInt(st.Size, 10),
	}
}
