// Package bundle serializes one collection to an opaque text blob for
// sharing, and back. The blob is versioned, gzip-compressed JSON in
// base64, safe to pass around as plain text or a dropped file.
package bundle

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"

	"github.com/playmix/playmix/pkg/model"
)

const (
	currentVersion = 1
	magic          = "playmix/"
)

// Export produces the shareable blob for a collection. The storage ID
// is stripped, importers assign their own.
func Export(collection *model.Collection) (string, error) {
	shared := *collection
	shared.ID = ""

	payload, err := json.Marshal(&shared)
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize collection %q", collection.Name)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", errors.Wrap(err, "failed to compress collection")
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, "failed to compress collection")
	}

	return fmt.Sprintf("%s%d:%s", magic, currentVersion, base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Import parses a blob produced by Export. Anything structurally off
// fails with model.ErrMalformed.
func Import(blob string) (*model.Collection, error) {
	blob = strings.TrimSpace(blob)

	if !strings.HasPrefix(blob, magic) {
		return nil, errors.Wrap(model.ErrMalformed, "not a collection bundle")
	}

	rest := blob[len(magic):]
	version, encoded, found := strings.Cut(rest, ":")
	if !found {
		return nil, errors.Wrap(model.ErrMalformed, "missing bundle version")
	}

	if version != fmt.Sprintf("%d", currentVersion) {
		return nil, errors.Wrapf(model.ErrMalformed, "unsupported bundle version %q", version)
	}

	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(model.ErrMalformed, "invalid base64 payload")
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(model.ErrMalformed, "invalid gzip payload")
	}

	payload, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(model.ErrMalformed, "truncated gzip payload")
	}

	var collection model.Collection
	if err := json.Unmarshal(payload, &collection); err != nil {
		return nil, errors.Wrap(model.ErrMalformed, "invalid collection json")
	}

	if collection.Name == "" {
		return nil, errors.Wrap(model.ErrMalformed, "bundle has no collection name")
	}

	collection.ID = ""
	return &collection, nil
}
