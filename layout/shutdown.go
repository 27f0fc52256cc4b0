// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package layout

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/vocerrors"
)

// shutdownInfo is the on-disk shape of the SHUTDOWN marker.
type shutdownInfo struct {
	Tick         string `json:"tick"`
	ShutdownTime string `json:"shutdownTime"`
}

// WriteShutdownInfo snapshots tick and the current time into the
// SHUTDOWN marker. The write is deliberately not atomic relative to
// process termination (no temp-file-then-rename here): a torn write
// leaves the marker absent-or-invalid, which is indistinguishable from
// a crash and is the desired fallback per the design notes.
func WriteShutdownInfo(fs afero.Fs, path string, tick uint64) error {
	info := shutdownInfo{
		Tick:         strconv.FormatUint(tick, 10),
		ShutdownTime: time.Now().UTC().Format(time.RFC3339),
	}
	bs, err := json.Marshal(info)
	if err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, path, "failed to encode shutdown marker: %v", err)
	}
	if err := afero.WriteFile(fs, path, bs, 0o644); err != nil {
		return vocerrors.NewWithPath(vocerrors.Internal, path, "failed to write shutdown marker: %v", err)
	}
	return nil
}

// ReadShutdownInfo reads the SHUTDOWN marker if present. wasClean is
// false when the marker is absent, implying the previous run crashed.
// When present, tick carries the last tick the previous run observed; a
// tick of "0" is treated as a fatal internal error since zero can never
// be a value NewTick produced.
func ReadShutdownInfo(fs afero.Fs, path string) (tick uint64, wasClean bool, err error) {
	bs, readErr := afero.ReadFile(fs, path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return 0, false, nil
		}
		return 0, false, vocerrors.NewWithPath(vocerrors.Internal, path, "failed to read shutdown marker: %v", readErr)
	}

	var info shutdownInfo
	if err := json.Unmarshal(bs, &info); err != nil {
		return 0, false, vocerrors.NewWithPath(vocerrors.Internal, path, "shutdown marker is not valid JSON: %v", err)
	}

	tick, err = strconv.ParseUint(info.Tick, 10, 64)
	if err != nil {
		return 0, false, vocerrors.NewWithPath(vocerrors.Internal, path, "shutdown marker has a non-numeric tick: %v", err)
	}

	if tick == 0 {
		return 0, false, vocerrors.NewWithPath(vocerrors.Internal, path, "shutdown marker has a zero tick")
	}

	return tick, true, nil
}

// RemoveShutdownInfo unlinks the marker once it has been consumed. If
// removal fails, the caller must fail startup: leaving a stale marker
// in place would cause the next crash to be misread as a clean
// shutdown.
func RemoveShutdownInfo(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return vocerrors.NewWithPath(vocerrors.Internal, path, "failed to remove shutdown marker: %v", err)
	}
	return nil
}
