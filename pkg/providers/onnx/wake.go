package onnx

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/murmurlabs/murmur/pkg/errorsx"
)

// openWakeWord pipeline dimensions.
const (
	wakeSampleRate = 16000
	wakeChunkSize  = 1280 // 80 ms
	melBins        = 32
	melFramesChunk = 5 // one 1280-sample chunk yields 5 mel frames
	melWindowSize  = 76
	melStepSize    = 8
	embeddingDim   = 96
	embedFrames    = 16
)

// WakeConfig locates the three openWakeWord models.
type WakeConfig struct {
	MelspecModel   string
	EmbeddingModel string
	WakewordModel  string
	RuntimeLibrary string
}

// WakeWord runs the three-stage openWakeWord pipeline: raw audio to mel
// frames, mel windows to embeddings, recent embeddings to a score. The
// pipeline is stateful across chunks; Reset flushes it.
type WakeWord struct {
	melSession   *ort.AdvancedSession
	melIn        *ort.Tensor[float32]
	melOut       *ort.Tensor[float32]
	embedSession *ort.AdvancedSession
	embedIn      *ort.Tensor[float32]
	embedOut     *ort.Tensor[float32]
	wwSession    *ort.AdvancedSession
	wwIn         *ort.Tensor[float32]
	wwOut        *ort.Tensor[float32]

	melBuffer   []float32
	embedBuffer []float32
}

// NewWakeWord loads the model chain.
func NewWakeWord(cfg WakeConfig) (*WakeWord, error) {
	if err := InitRuntime(cfg.RuntimeLibrary); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}

	w := &WakeWord{
		embedBuffer: make([]float32, embedFrames*embeddingDim),
	}
	var err error
	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	if w.melIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, wakeChunkSize)); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if w.melOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, melFramesChunk, melBins)); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if w.melSession, err = newStageSession(cfg.MelspecModel, w.melIn, w.melOut); err != nil {
		return nil, err
	}

	if w.embedIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, melWindowSize, melBins, 1)); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if w.embedOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, 1, embeddingDim)); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if w.embedSession, err = newStageSession(cfg.EmbeddingModel, w.embedIn, w.embedOut); err != nil {
		return nil, err
	}

	if w.wwIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, embedFrames, embeddingDim)); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if w.wwOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if w.wwSession, err = newStageSession(cfg.WakewordModel, w.wwIn, w.wwOut); err != nil {
		return nil, err
	}

	return w, nil
}

func newStageSession(modelPath string, in, out *ort.Tensor[float32]) (*ort.AdvancedSession, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errorsx.New(errorsx.ReasonWakeModel,
			fmt.Sprintf("model %s exposes no usable inputs/outputs", modelPath))
	}
	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.Value{in}, []ort.Value{out}, nil)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	return session, nil
}

func (w *WakeWord) Name() string    { return "openwakeword" }
func (w *WakeWord) ChunkSize() int  { return wakeChunkSize }
func (w *WakeWord) SampleRate() int { return wakeSampleRate }

// Predict feeds one chunk through the pipeline and returns the highest
// wake score produced by any embedding window it completed. Chunks that
// complete no window score zero.
func (w *WakeWord) Predict(chunk []float32) (float32, error) {
	if len(chunk) != wakeChunkSize {
		return 0, errorsx.New(errorsx.ReasonWakeModel,
			fmt.Sprintf("chunk of %d samples, want %d", len(chunk), wakeChunkSize))
	}

	// Stage 1: melspectrogram. The model expects int16-scaled floats.
	melData := w.melIn.GetData()
	for i, v := range chunk {
		melData[i] = v * 32768
	}
	if err := w.melSession.Run(); err != nil {
		return 0, errorsx.Wrap(err, errorsx.ReasonWakeModel)
	}
	for _, v := range w.melOut.GetData()[:melFramesChunk*melBins] {
		w.melBuffer = append(w.melBuffer, v/10.0+2.0)
	}

	// Stage 2: slide embedding windows over the mel history.
	var best float32
	scored := false
	for len(w.melBuffer)/melBins >= melWindowSize {
		copy(w.embedIn.GetData(), w.melBuffer[:melWindowSize*melBins])
		if err := w.embedSession.Run(); err != nil {
			return 0, errorsx.Wrap(err, errorsx.ReasonWakeModel)
		}

		copy(w.embedBuffer, w.embedBuffer[embeddingDim:])
		copy(w.embedBuffer[(embedFrames-1)*embeddingDim:], w.embedOut.GetData()[:embeddingDim])

		n := copy(w.melBuffer, w.melBuffer[melStepSize*melBins:])
		w.melBuffer = w.melBuffer[:n]

		// Stage 3: score the embedding window.
		copy(w.wwIn.GetData(), w.embedBuffer)
		if err := w.wwSession.Run(); err != nil {
			return 0, errorsx.Wrap(err, errorsx.ReasonWakeModel)
		}
		if score := w.wwOut.GetData()[0]; !scored || score > best {
			best = score
			scored = true
		}
	}
	return best, nil
}

// Reset flushes mel history and embeddings so a detection cannot
// re-trigger on stale activation.
func (w *WakeWord) Reset() {
	w.melBuffer = w.melBuffer[:0]
	for i := range w.embedBuffer {
		w.embedBuffer[i] = 0
	}
}

// Close releases every session and tensor that was created.
func (w *WakeWord) Close() error {
	for _, s := range []*ort.AdvancedSession{w.melSession, w.embedSession, w.wwSession} {
		if s != nil {
			s.Destroy()
		}
	}
	for _, t := range []*ort.Tensor[float32]{w.melIn, w.melOut, w.embedIn, w.embedOut, w.wwIn, w.wwOut} {
		if t != nil {
			t.Destroy()
		}
	}
	return nil
}
