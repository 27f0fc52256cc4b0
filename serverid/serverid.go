// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package serverid generates, persists, and reloads the server's
// per-installation identifier (the SERVER file).
package serverid

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/vocerrors"
)

// mask48 keeps only the low 48 bits of a 64-bit draw.
const mask48 = (uint64(1) << 48) - 1

// record is the on-disk shape of the SERVER file.
type record struct {
	ServerID    *string `json:"serverId"`
	CreatedTime *string `json:"createdTime"`
}

// Determine returns the server's stable 48-bit installation identifier,
// generating and persisting one to path if it does not already exist.
//
// A present-but-corrupt file (missing, non-string, or zero serverId) is
// a fatal internal error: unlike the absent-file case, there is no safe
// default to fall back to, since it would fabricate an identifier the
// operator never saw written.
func Determine(fs afero.Fs, path string, logger logging.Logger) (uint64, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return 0, vocerrors.NewWithPath(vocerrors.Internal, path, "failed to stat server-id file: %v", err)
	}

	if !exists {
		id := generate()
		if err := write(fs, path, id); err != nil {
			return 0, err
		}
		logger.Info("generated new server id %d, persisted to %s", id, path)
		return id, nil
	}

	return read(fs, path)
}

// generate draws a new 48-bit identifier, retrying on the astronomically
// unlikely all-zero draw. Zero is reserved as "unset" on disk, so the
// generator itself must never hand one out (the original source only
// rejected zero when re-reading the file; this core additionally guards
// the generator, per the Open Question recorded in the distilled spec).
func generate() uint64 {
	for {
		hi := rand.Uint32()
		lo := rand.Uint32()
		id := (uint64(hi)<<32 | uint64(lo)) & mask48
		if id != 0 {
			return id
		}
	}
}

func write(fs afero.Fs, path string, id uint64) error {
	idStr := strconv.FormatUint(id, 10)
	createdStr := time.Now().UTC().Format(time.RFC3339)
	rec := record{ServerID: &idStr, CreatedTime: &createdStr}

	bs, err := json.Marshal(rec)
	if err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, path, "failed to encode server-id file: %v", err)
	}

	if err := afero.WriteFile(fs, path, bs, 0o644); err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, path, "failed to write server-id file: %v", err)
	}
	return nil
}

func read(fs afero.Fs, path string) (uint64, error) {
	bs, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, vocerrors.NewWithPath(vocerrors.Internal, path, "failed to read server-id file: %v", err)
	}

	var rec record
	if err := json.Unmarshal(bs, &rec); err != nil {
		return 0, vocerrors.NewWithPath(vocerrors.Internal, path, "server-id file is not valid JSON: %v", err)
	}

	if rec.ServerID == nil {
		return 0, vocerrors.NewWithPath(vocerrors.Internal, path, "server-id file is missing the serverId field")
	}

	id, err := strconv.ParseUint(*rec.ServerID, 10, 64)
	if err != nil {
		return 0, vocerrors.NewWithPath(vocerrors.Internal, path, "server-id file has a non-numeric serverId: %v", err)
	}

	if id == 0 {
		return 0, vocerrors.NewWithPath(vocerrors.Internal, path, "server-id file has a zero serverId")
	}

	return id, nil
}
