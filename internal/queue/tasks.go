package queue

const (
	TypeLectureProcess = "lecture:process"
)

// LectureProcessPayload identifies one uploaded lecture awaiting the full
// transcribe-and-synthesize run. AudioPath points at the temp file the API
// saved the upload to; the worker owns and removes it.
type LectureProcessPayload struct {
	JobID     string `json:"job_id"`
	AudioPath string `json:"audio_path"`
	Filename  string `json:"filename"`
	Prompt    string `json:"prompt,omitempty"`
}
