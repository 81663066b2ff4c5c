package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonCaptureOpen   ReasonCode = "capture_open"
	ReasonCaptureStream ReasonCode = "capture_stream"

	ReasonWakeModel ReasonCode = "wake_model"
	ReasonVADModel  ReasonCode = "vad_model"

	ReasonSTTTranscribe  ReasonCode = "stt_transcribe"
	ReasonSTTCircuitOpen ReasonCode = "stt_circuit_open"

	ReasonTTSSpawn    ReasonCode = "tts_spawn"
	ReasonTTSConnect  ReasonCode = "tts_connect"
	ReasonTTSProtocol ReasonCode = "tts_protocol"
	ReasonSynthStream ReasonCode = "synth_stream"

	ReasonPlaybackSend   ReasonCode = "playback_send"
	ReasonPlaybackClosed ReasonCode = "playback_closed"
	ReasonDeviceOutput   ReasonCode = "device_output"
)
