package testutil

import "encoding/json"

// ResultJSON builds a wire message carrying a complete transcription
func ResultJSON(transcript, srt, vtt string) string {
	type entry struct {
		Format    string `json:"format"`
		Subtitles string `json:"subtitles"`
	}
	msg := map[string]any{
		"payload": map[string]any{
			"transcription": map[string]any{
				"full_transcript": transcript,
				"subtitles": []entry{
					{Format: "srt", Subtitles: srt},
					{Format: "vtt", Subtitles: vtt},
				},
			},
		},
	}
	data, _ := json.Marshal(msg)
	return string(data)
}

// SampleResultJSON is ResultJSON with the sample payloads
func SampleResultJSON() string {
	return ResultJSON(SampleTranscript, SampleSRT, SampleVTT)
}

// AcceptedJSON is a 2xx body without a transcription
const AcceptedJSON = `{"status":"processing"}`
