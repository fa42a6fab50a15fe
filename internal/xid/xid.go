package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var seq atomic.Uint64

// New returns "<prefix>-<unix ms>-<seq>-<random>". The millisecond stamp and
// the per-process sequence are fixed width, so ids from one process sort in
// creation order, which keeps ledger listings stable without an extra column.
func New(prefix string) string {
	n := seq.Add(1) % 1_000_000
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%013d-%06d", prefix, time.Now().UnixMilli(), n)
	}
	return fmt.Sprintf("%s-%013d-%06d-%s", prefix, time.Now().UnixMilli(), n, hex.EncodeToString(buf))
}
