package onnx

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/murmurlabs/murmur/pkg/errorsx"
)

const (
	vadSampleRate = 16000
	vadChunkSize  = 512
)

// VADConfig locates the silero voice activity model.
type VADConfig struct {
	ModelPath string
	// RuntimeLibrary is the ONNX Runtime shared library path.
	RuntimeLibrary string
}

// VAD wraps a silero session. The model is recurrent: its state tensor
// carries across chunks and must be reset between utterances.
type VAD struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	state   *ort.Tensor[float32]
	sr      *ort.Tensor[int64]
	output  *ort.Tensor[float32]
	stateN  *ort.Tensor[float32]
}

// NewVAD loads the silero model.
func NewVAD(cfg VADConfig) (*VAD, error) {
	if err := InitRuntime(cfg.RuntimeLibrary); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, vadChunkSize))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}
	state, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		input.Destroy()
		return nil, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}
	sr, err := ort.NewTensor(ort.NewShape(1), []int64{vadSampleRate})
	if err != nil {
		input.Destroy()
		state.Destroy()
		return nil, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		state.Destroy()
		sr.Destroy()
		return nil, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}
	stateN, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		input.Destroy()
		state.Destroy()
		sr.Destroy()
		output.Destroy()
		return nil, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{input, state, sr},
		[]ort.Value{output, stateN},
		nil,
	)
	if err != nil {
		input.Destroy()
		state.Destroy()
		sr.Destroy()
		output.Destroy()
		stateN.Destroy()
		return nil, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}

	return &VAD{
		session: session,
		input:   input,
		state:   state,
		sr:      sr,
		output:  output,
		stateN:  stateN,
	}, nil
}

func (v *VAD) Name() string    { return "silero" }
func (v *VAD) ChunkSize() int  { return vadChunkSize }
func (v *VAD) SampleRate() int { return vadSampleRate }

// Predict returns the speech probability for one chunk and advances the
// recurrent state.
func (v *VAD) Predict(chunk []float32) (float32, error) {
	if len(chunk) != vadChunkSize {
		return 0, errorsx.New(errorsx.ReasonVADModel,
			fmt.Sprintf("chunk of %d samples, want %d", len(chunk), vadChunkSize))
	}
	copy(v.input.GetData(), chunk)
	if err := v.session.Run(); err != nil {
		return 0, errorsx.Wrap(err, errorsx.ReasonVADModel)
	}
	copy(v.state.GetData(), v.stateN.GetData())
	return v.output.GetData()[0], nil
}

// Reset clears the recurrent state.
func (v *VAD) Reset() {
	data := v.state.GetData()
	for i := range data {
		data[i] = 0
	}
}

// Close releases the session and its tensors.
func (v *VAD) Close() error {
	v.session.Destroy()
	v.input.Destroy()
	v.state.Destroy()
	v.sr.Destroy()
	v.output.Destroy()
	v.stateN.Destroy()
	return nil
}
