// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity_test

import (
	"bytes"
	"log/slog"
	"sync"
)

// recordingRecorder captures workflow outcomes.
type recordingRecorder struct {
	mu          sync.Mutex
	provisions  []string
	resolutions []string
}

func (r *recordingRecorder) RecordProvision(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provisions = append(r.provisions, result)
}

func (r *recordingRecorder) RecordResolution(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, result)
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
