// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/vocerrors"
)

func formatTick(tick uint64) string {
	return strconv.FormatUint(tick, 10)
}

// Descriptor is the bit-exact schema of parameter.json: id, name,
// deleted, properties, in that field order.
type Descriptor struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Deleted    bool            `json:"deleted"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// WriteDescriptor atomically persists a database descriptor: the JSON
// is written to a temp file in the same directory and then renamed into
// place, the same write-temp-then-rename idiom the teacher uses for
// bundle packages (internal/bundle/utils.go's SaveBundleToDisk), so a
// crash mid-write never leaves a torn parameter.json behind.
func WriteDescriptor(fs afero.Fs, dir string, desc Descriptor) error {
	bs, err := json.Marshal(desc)
	if err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, dir, "failed to encode descriptor: %v", err)
	}

	target := filepath.Join(dir, ParameterFile)
	tmp, err := afero.TempFile(fs, dir, ".parameter.json.*.tmp")
	if err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, dir, "failed to create temp descriptor file: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return vocerrors.NewWithPath(vocerrors.Internal, dir, "failed to write temp descriptor file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return vocerrors.NewWithPath(vocerrors.Internal, dir, "failed to close temp descriptor file: %v", err)
	}

	if err := fs.Rename(tmpName, target); err != nil {
		fs.Remove(tmpName)
		return vocerrors.NewWithPath(vocerrors.Internal, dir, "failed to rename descriptor file into place: %v", err)
	}
	return nil
}

// ReadDescriptor loads dir/parameter.json. ok is true only when the
// descriptor was present, valid JSON, and carried a non-empty string
// name.
func ReadDescriptor(fs afero.Fs, dir string) (desc Descriptor, ok bool, err error) {
	path := filepath.Join(dir, ParameterFile)

	bs, readErr := afero.ReadFile(fs, path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return Descriptor{}, false, nil
		}
		return Descriptor{}, false, vocerrors.NewWithPath(vocerrors.Internal, path, "failed to read descriptor: %v", readErr)
	}

	if jsonErr := json.Unmarshal(bs, &desc); jsonErr != nil {
		return Descriptor{}, false, nil
	}

	if desc.Name == "" {
		return Descriptor{}, false, nil
	}

	return desc, true, nil
}

// MarshalDefaults serializes a set of server-wide default properties
// into the form persisted in a freshly created or migrated database's
// parameter.json properties field. A nil/empty defaults map yields a
// nil RawMessage (the properties field is then simply omitted), the
// same as an original database directory created with no overrides.
func MarshalDefaults(defaults map[string]interface{}) (json.RawMessage, error) {
	if len(defaults) == 0 {
		return nil, nil
	}
	bs, err := json.Marshal(defaults)
	if err != nil {
		return nil, vocerrors.New(vocerrors.Internal, "failed to encode database defaults: %v", err)
	}
	return bs, nil
}

// MergeDefaults blends a database's persisted properties over the
// server's own defaults, override winning key-for-key, mirroring the
// original's TRI_GetDatabaseDefaultsServer followed by
// TRI_FromJsonVocBaseDefaults: the server-wide defaults fill in
// anything the database's own properties don't mention, so a default
// added after a database was created still takes effect for it.
func MergeDefaults(base map[string]interface{}, override json.RawMessage) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}
	if len(override) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(override, &parsed); err != nil {
			return nil, vocerrors.New(vocerrors.Internal, "invalid database properties JSON: %v", err)
		}
		for k, v := range parsed {
			merged[k] = v
		}
	}
	return merged, nil
}
