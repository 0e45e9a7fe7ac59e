// Package codec implements the compact textual encoding used to persist
// per-sub-list item lists. The format is row oriented: a header line with
// the column names and a version tag, then one tab-separated row per item.
// Timestamps are stored at minute resolution as signed varints packed into
// an unpadded base64 string, which keeps multi-thousand item lists small.
package codec

import (
	"encoding/base64"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/playmix/playmix/pkg/model"
)

const (
	// header is the exact first line of every encoded blob. Any column
	// change must bump the version tag so that old caches are discarded
	// instead of being misparsed.
	header = "id\tat\tv1"

	// epochBase is the fixed reference point for stored timestamps,
	// 2005-01-01T00:00:00Z in milliseconds. Keeps the varints short for
	// any realistic publish date.
	epochBase = int64(1104537600000)

	minuteMillis = int64(60000)

	signBit = byte(0x40)
	contBit = byte(0x80)
)

// Encode serializes items into the versioned textual form understood by
// Decode. Item order is preserved.
func Encode(items []model.Item) string {
	var sb strings.Builder
	sb.WriteString(header)

	for _, item := range items {
		sb.WriteByte('\n')
		sb.WriteString(item.ID)
		sb.WriteByte('\t')
		sb.WriteString(encodeTimestamp(item.PublishedAt))
	}

	return sb.String()
}

// Decode parses a blob produced by Encode. A header mismatch or a
// malformed row fails with model.ErrMalformed, which callers must treat
// the same as missing data.
func Decode(blob string) ([]model.Item, error) {
	lines := strings.Split(strings.TrimSuffix(blob, "\n"), "\n")

	if lines[0] != header {
		return nil, errors.Wrapf(model.ErrMalformed, "unexpected header %q", lines[0])
	}

	items := make([]model.Item, 0, len(lines)-1)
	for _, line := range lines[1:] {
		columns := strings.Split(line, "\t")
		if len(columns) != 2 {
			return nil, errors.Wrapf(model.ErrMalformed, "row has %d columns", len(columns))
		}

		at, err := decodeTimestamp(columns[1])
		if err != nil {
			return nil, err
		}

		items = append(items, model.Item{ID: columns[0], PublishedAt: at})
	}

	return items, nil
}

// encodeTimestamp converts epoch milliseconds to minutes relative to
// epochBase and packs the signed varint bytes into unpadded base64.
func encodeTimestamp(millis int64) string {
	minutes := int64(math.Round(float64(millis-epochBase) / float64(minuteMillis)))
	return base64.RawStdEncoding.EncodeToString(appendVarint(nil, minutes))
}

func decodeTimestamp(s string) (int64, error) {
	raw, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return 0, errors.Wrapf(model.ErrMalformed, "invalid base64 %q", s)
	}

	minutes, err := parseVarint(raw)
	if err != nil {
		return 0, err
	}

	return minutes*minuteMillis + epochBase, nil
}

// appendVarint writes v as sign bit plus magnitude: 6 bits in the first
// byte, 7 bits per continuation byte, continuation flagged by the top bit.
func appendVarint(dst []byte, v int64) []byte {
	var sign byte
	mag := uint64(v)
	if v < 0 {
		sign = signBit
		mag = uint64(-v)
	}

	first := sign | byte(mag&0x3f)
	mag >>= 6
	if mag > 0 {
		first |= contBit
	}
	dst = append(dst, first)

	for mag > 0 {
		next := byte(mag & 0x7f)
		mag >>= 7
		if mag > 0 {
			next |= contBit
		}
		dst = append(dst, next)
	}

	return dst
}

func parseVarint(raw []byte) (int64, error) {
	if len(raw) == 0 {
		return 0, errors.Wrap(model.ErrMalformed, "empty varint")
	}

	first := raw[0]
	negative := first&signBit != 0
	mag := uint64(first & 0x3f)
	cont := first&contBit != 0

	shift := uint(6)
	i := 1
	for cont {
		if i >= len(raw) {
			return 0, errors.Wrap(model.ErrMalformed, "truncated varint")
		}
		next := raw[i]
		mag |= uint64(next&0x7f) << shift
		shift += 7
		cont = next&contBit != 0
		i++
	}

	if i != len(raw) {
		return 0, errors.Wrap(model.ErrMalformed, "trailing varint bytes")
	}

	value := int64(mag)
	if negative {
		value = -value
	}

	return value, nil
}
