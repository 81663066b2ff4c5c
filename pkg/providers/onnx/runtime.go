// Package onnx hosts the local neural models: silero voice activity
// detection and an openWakeWord-style wake-phrase scorer, both running
// on ONNX Runtime.
package onnx

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/murmurlabs/murmur/pkg/errorsx"
)

var (
	rtOnce sync.Once
	rtErr  error
)

// InitRuntime loads the ONNX Runtime shared library once per process.
// libraryPath may be empty when the library is on the default search
// path.
func InitRuntime(libraryPath string) error {
	rtOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		rtErr = ort.InitializeEnvironment()
	})
	return errorsx.Wrap(rtErr, errorsx.ReasonVADModel)
}
