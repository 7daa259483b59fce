package session

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/leonardotrapani/getsubs/internal/subtitles"
	"github.com/leonardotrapani/getsubs/internal/transcriber"
)

func sampleResult(transcript string) subtitles.TranscriptionResult {
	return subtitles.TranscriptionResult{
		FullTranscript: transcript,
		Subtitles: []subtitles.Subtitle{
			{Format: subtitles.SRT, Subtitles: "srt:" + transcript},
			{Format: subtitles.VTT, Subtitles: "vtt:" + transcript},
		},
	}
}

func pushJSON(transcript string) []byte {
	return []byte(fmt.Sprintf(`{"payload":{"transcription":{"full_transcript":%q,"subtitles":[{"format":"srt","subtitles":%q},{"format":"vtt","subtitles":%q}]}}}`,
		transcript, "srt:"+transcript, "vtt:"+transcript))
}

func pending(t *testing.T, sub subtitles.Submission) Context {
	t.Helper()
	c, _, err := Context{}.Submit("req-1", sub)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return c
}

func TestContext_SubmitMissingInput(t *testing.T) {
	inputs := []subtitles.Submission{
		{},
		{URL: "   "},
		{FilePath: "\t"},
	}

	for _, sub := range inputs {
		next, effects, err := Context{}.Submit("req-1", sub)
		if !errors.Is(err, subtitles.ErrMissingInput) {
			t.Errorf("Submit(%+v) error = %v, want ErrMissingInput", sub, err)
		}
		if next.State != Idle {
			t.Errorf("state = %s, want idle", next.State)
		}
		want := []Effect{ShowWarning{Visible: false}, ShowWarning{Visible: true}}
		if !reflect.DeepEqual(effects, want) {
			t.Errorf("effects = %#v, want %#v", effects, want)
		}
	}
}

func TestContext_SubmitStartsRequest(t *testing.T) {
	sub := subtitles.Submission{URL: " https://host/path/audio123.mp3 "}
	next, effects, err := Context{}.Submit("req-1", sub)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if next.State != Pending || next.ID != "req-1" {
		t.Errorf("next = %+v, want pending req-1", next)
	}
	normalized := subtitles.Submission{URL: "https://host/path/audio123.mp3"}
	want := []Effect{
		ShowWarning{Visible: false},
		SetProcessing{On: true},
		SendRequest{ID: "req-1", Submission: normalized},
	}
	if !reflect.DeepEqual(effects, want) {
		t.Errorf("effects = %#v, want %#v", effects, want)
	}
}

func TestContext_SubmitFileWins(t *testing.T) {
	next, _, err := Context{}.Submit("req-1", subtitles.Submission{
		URL:      "https://host/a.mp3",
		FilePath: "/tmp/clip.wav",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if next.Submission.URL != "" || next.Submission.FilePath != "/tmp/clip.wav" {
		t.Errorf("Submission = %+v, want file only", next.Submission)
	}
}

func TestContext_SubmitWhileBusy(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})

	next, effects, err := c.Submit("req-2", subtitles.Submission{URL: "https://host/b.mp3"})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("Submit() error = %v, want ErrBusy", err)
	}
	if effects != nil {
		t.Errorf("effects = %#v, want none", effects)
	}
	if next.ID != "req-1" {
		t.Errorf("busy submit replaced the slot: %+v", next)
	}
}

func TestContext_SubmitAfterFailureReplacesSlot(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	c, _ = c.FailRequest("req-1", errors.New("boom"))

	next, effects, err := c.Submit("req-2", subtitles.Submission{URL: "https://host/b.mp3"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if next.ID != "req-2" || next.Err != nil {
		t.Errorf("next = %+v, want fresh req-2", next)
	}
	if !containsEffect(effects, Clear{}) {
		t.Errorf("effects = %#v, want Clear", effects)
	}
}

func TestContext_SubmitAfterResolveClears(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	c, _ = c.Resolve(sampleResult("first"), SourceHTTP)

	next, effects, err := c.Submit("req-2", subtitles.Submission{URL: "https://host/b.mp3"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if next.State != Pending || next.Result != nil || next.Exports != nil {
		t.Errorf("next = %+v, want a clean pending slot", next)
	}
	want := []Effect{
		ShowWarning{Visible: false},
		Clear{},
		SetProcessing{On: true},
		SendRequest{ID: "req-2", Submission: subtitles.Submission{URL: "https://host/b.mp3"}},
	}
	if !reflect.DeepEqual(effects, want) {
		t.Errorf("effects = %#v, want %#v", effects, want)
	}
}

func TestContext_ResolveMaterializes(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})

	next, effects := c.Resolve(sampleResult("hello"), SourcePush)

	if next.State != Resolved || next.Source != SourcePush {
		t.Errorf("next = %+v, want resolved from push", next)
	}
	if !next.TranscriptVisible {
		t.Error("transcript should be visible after resolve")
	}
	want := []Effect{
		SetProcessing{On: false},
		RenderTranscript{Text: "hello"},
		RevealExports{Formats: []subtitles.Format{subtitles.SRT, subtitles.VTT}},
		SetTranscriptVisible{Visible: true},
	}
	if !reflect.DeepEqual(effects, want) {
		t.Errorf("effects = %#v, want %#v", effects, want)
	}
}

func TestContext_ResolveIsIdempotent(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	first, _ := c.Resolve(sampleResult("first"), SourceHTTP)

	sources := []Source{SourceHTTP, SourcePush}
	results := []subtitles.TranscriptionResult{sampleResult("first"), sampleResult("second")}

	for _, src := range sources {
		for _, res := range results {
			next, effects := first.Resolve(res, src)
			if len(effects) != 0 {
				t.Errorf("Resolve(%s, %s) after resolve produced %#v", res.FullTranscript, src, effects)
			}
			if !reflect.DeepEqual(next, first) {
				t.Errorf("Resolve(%s, %s) after resolve changed state", res.FullTranscript, src)
			}
		}
	}
}

func TestContext_ResolveWhileIdleIsIgnored(t *testing.T) {
	next, effects := Context{}.Resolve(sampleResult("stray"), SourcePush)
	if next.State != Idle || len(effects) != 0 {
		t.Errorf("Resolve while idle = %+v, %#v", next, effects)
	}
}

func TestContext_FirstChannelWins(t *testing.T) {
	tests := []struct {
		name  string
		apply func(c Context) Context
		want  string
		src   Source
	}{
		{
			name: "push then http",
			apply: func(c Context) Context {
				c, _ = c.ReceivePush(pushJSON("from push"))
				res := sampleResult("from http")
				c, _ = c.CompleteRequest("req-1", &res)
				return c
			},
			want: "from push",
			src:  SourcePush,
		},
		{
			name: "http then push",
			apply: func(c Context) Context {
				res := sampleResult("from http")
				c, _ = c.CompleteRequest("req-1", &res)
				c, _ = c.ReceivePush(pushJSON("from push"))
				return c
			},
			want: "from http",
			src:  SourceHTTP,
		},
		{
			name: "duplicate push",
			apply: func(c Context) Context {
				c, _ = c.ReceivePush(pushJSON("one"))
				c, _ = c.ReceivePush(pushJSON("two"))
				return c
			},
			want: "one",
			src:  SourcePush,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.apply(pending(t, subtitles.Submission{URL: "https://host/a.mp3"}))
			if c.Result == nil || c.Result.FullTranscript != tt.want {
				t.Fatalf("Result = %+v, want %q", c.Result, tt.want)
			}
			if c.Source != tt.src {
				t.Errorf("Source = %s, want %s", c.Source, tt.src)
			}
			file, err := c.Export(subtitles.SRT)
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if string(file.Content) != "srt:"+tt.want {
				t.Errorf("export content = %q, want srt:%s", file.Content, tt.want)
			}
		})
	}
}

func TestContext_CompleteRequest(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	res := sampleResult("hello")

	t.Run("stale id is ignored", func(t *testing.T) {
		next, effects := c.CompleteRequest("other", &res)
		if next.State != Pending || len(effects) != 0 {
			t.Errorf("stale completion changed state: %+v %#v", next, effects)
		}
	})

	t.Run("accepted without result waits", func(t *testing.T) {
		next, effects := c.CompleteRequest("req-1", nil)
		if next.State != Pending || len(effects) != 0 {
			t.Errorf("accepted completion changed state: %+v %#v", next, effects)
		}
		if !next.Accepted {
			t.Error("accepted completion should mark the slot accepted")
		}
	})

	t.Run("result resolves", func(t *testing.T) {
		next, _ := c.CompleteRequest("req-1", &res)
		if next.State != Resolved || next.Source != SourceHTTP {
			t.Errorf("next = %+v, want resolved from http", next)
		}
	})
}

func TestContext_FailRequestKeepsSlotOpen(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	failure := errors.New("status 502")

	next, effects := c.FailRequest("req-1", failure)
	if next.State != Pending {
		t.Errorf("state = %s, want pending", next.State)
	}
	if !errors.Is(next.Err, failure) {
		t.Errorf("Err = %v, want %v", next.Err, failure)
	}
	want := []Effect{SetProcessing{On: false}, ShowStatus{Message: StatusFetchFailed}}
	if !reflect.DeepEqual(effects, want) {
		t.Errorf("effects = %#v, want %#v", effects, want)
	}
	if _, err := next.Export(subtitles.SRT); !errors.Is(err, ErrNotReady) {
		t.Errorf("Export() after failure error = %v, want ErrNotReady", err)
	}

	// a late push still materializes and clears the failure status
	resolved, effects := next.ReceivePush(pushJSON("late"))
	if resolved.State != Resolved || resolved.Err != nil {
		t.Errorf("late push did not resolve: %+v", resolved)
	}
	if !containsEffect(effects, ShowStatus{Message: ""}) {
		t.Errorf("effects = %#v, want status cleared", effects)
	}

	t.Run("stale failure is ignored", func(t *testing.T) {
		next, effects := c.FailRequest("other", failure)
		if next.Err != nil || len(effects) != 0 {
			t.Errorf("stale failure changed state: %+v %#v", next, effects)
		}
	})

	t.Run("failure after resolve is ignored", func(t *testing.T) {
		next, effects := resolved.FailRequest("req-1", failure)
		if next.State != Resolved || len(effects) != 0 {
			t.Errorf("failure after resolve changed state: %+v %#v", next, effects)
		}
	})
}

func TestContext_FailRequestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport failure", &transcriber.TransportError{StatusCode: 502}, StatusFetchFailed},
		{"plain error", errors.New("boom"), StatusFetchFailed},
		{"unreadable file", &transcriber.InputError{Path: "/tmp/a.wav", Err: errors.New("no such file")}, StatusInputFailed},
		{"no delivery", ErrNoDelivery, StatusNoDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
			_, effects := c.FailRequest("req-1", tt.err)
			if !containsEffect(effects, ShowStatus{Message: tt.want}) {
				t.Errorf("effects = %#v, want status %q", effects, tt.want)
			}
		})
	}
}

func TestContext_PushLost(t *testing.T) {
	t.Run("accepted slot fails", func(t *testing.T) {
		c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
		c, _ = c.CompleteRequest("req-1", nil)

		next, effects := c.PushLost()
		if next.State != Pending || !errors.Is(next.Err, ErrNoDelivery) {
			t.Errorf("next = %+v, want pending with ErrNoDelivery", next)
		}
		want := []Effect{SetProcessing{On: false}, ShowStatus{Message: StatusNoDelivery}}
		if !reflect.DeepEqual(effects, want) {
			t.Errorf("effects = %#v, want %#v", effects, want)
		}

		// the slot can be replaced
		if _, _, err := next.Submit("req-2", subtitles.Submission{URL: "https://host/b.mp3"}); err != nil {
			t.Errorf("Submit() after lost push error = %v", err)
		}

		again, effects := next.PushLost()
		if len(effects) != 0 || !reflect.DeepEqual(again, next) {
			t.Errorf("second PushLost() changed state: %+v %#v", again, effects)
		}
	})

	t.Run("request in flight is left alone", func(t *testing.T) {
		c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
		next, effects := c.PushLost()
		if next.Err != nil || len(effects) != 0 {
			t.Errorf("PushLost() changed an in-flight slot: %+v %#v", next, effects)
		}
	})

	t.Run("failed slot keeps its cause", func(t *testing.T) {
		failure := &transcriber.TransportError{StatusCode: 502}
		c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
		c, _ = c.FailRequest("req-1", failure)

		next, effects := c.PushLost()
		if len(effects) != 0 {
			t.Errorf("effects = %#v, want none", effects)
		}
		if !errors.Is(next.Err, ErrNoDelivery) || !transcriber.IsTransportFailure(next.Err) {
			t.Errorf("Err = %v, want ErrNoDelivery wrapping the transport failure", next.Err)
		}
		if CanAwaitPush(next.Err) {
			t.Error("CanAwaitPush() should be false once the push channel is gone")
		}
		if !CanAwaitPush(c.Err) {
			t.Error("CanAwaitPush() should be true for a plain transport failure")
		}
	})

	t.Run("resolved slot is ignored", func(t *testing.T) {
		c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
		res := sampleResult("done")
		c, _ = c.CompleteRequest("req-1", &res)

		next, effects := c.PushLost()
		if next.State != Resolved || next.Err != nil || len(effects) != 0 {
			t.Errorf("PushLost() changed a resolved slot: %+v %#v", next, effects)
		}
	})
}

func TestContext_ReceivePushUnusable(t *testing.T) {
	messages := []string{
		`not json`,
		`{}`,
		`{"payload":null}`,
		`{"payload":{"transcription":null}}`,
		`{"payload":{"transcription":{"subtitles":[]}}}`,
		`{"payload":{"transcription":{"full_transcript":"x","subtitles":[{"format":"ass","subtitles":"x"}]}}}`,
	}

	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	for _, msg := range messages {
		next, effects := c.ReceivePush([]byte(msg))
		if !reflect.DeepEqual(next, c) || len(effects) != 0 {
			t.Errorf("ReceivePush(%s) changed state: %+v %#v", msg, next, effects)
		}
	}

	next, effects := Context{}.ReceivePush(pushJSON("stray"))
	if next.State != Idle || len(effects) != 0 {
		t.Errorf("push while idle changed state: %+v %#v", next, effects)
	}
}

func TestContext_ToggleTranscript(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	if _, _, err := c.ToggleTranscript(); !errors.Is(err, ErrNotReady) {
		t.Errorf("ToggleTranscript() before resolve error = %v, want ErrNotReady", err)
	}

	c, _ = c.Resolve(sampleResult("hello"), SourceHTTP)
	c, effects, err := c.ToggleTranscript()
	if err != nil {
		t.Fatalf("ToggleTranscript() error = %v", err)
	}
	if c.TranscriptVisible {
		t.Error("first toggle should hide the transcript")
	}
	if !reflect.DeepEqual(effects, []Effect{SetTranscriptVisible{Visible: false}}) {
		t.Errorf("effects = %#v", effects)
	}

	c, _, _ = c.ToggleTranscript()
	if !c.TranscriptVisible {
		t.Error("second toggle should show the transcript")
	}
}

func TestContext_ExportNames(t *testing.T) {
	tests := []struct {
		sub     subtitles.Submission
		srtName string
		vttName string
	}{
		{subtitles.Submission{URL: "https://host/path/audio123.mp3"}, "audio123.mp3.srt", "audio123.mp3.vtt"},
		{subtitles.Submission{FilePath: "/home/user/clip.wav"}, "clip.wav.srt", "clip.wav.vtt"},
		{subtitles.Submission{URL: "https://host/path/"}, "audio.srt", "audio.vtt"},
	}

	for _, tt := range tests {
		c := pending(t, tt.sub)
		c, _ = c.Resolve(sampleResult("hello"), SourceHTTP)

		srt, err := c.Export(subtitles.SRT)
		if err != nil {
			t.Fatalf("Export(srt) error = %v", err)
		}
		vtt, err := c.Export(subtitles.VTT)
		if err != nil {
			t.Fatalf("Export(vtt) error = %v", err)
		}
		if srt.Name != tt.srtName || vtt.Name != tt.vttName {
			t.Errorf("names = %s, %s; want %s, %s", srt.Name, vtt.Name, tt.srtName, tt.vttName)
		}
		if srt.ContentType != "text/srt" || vtt.ContentType != "text/vtt" {
			t.Errorf("content types = %s, %s", srt.ContentType, vtt.ContentType)
		}
	}
}

func TestContext_ExportMissingFormat(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/a.mp3"})
	c, effects := c.Resolve(subtitles.TranscriptionResult{
		FullTranscript: "only srt",
		Subtitles:      []subtitles.Subtitle{{Format: subtitles.SRT, Subtitles: "1"}},
	}, SourceHTTP)

	if !containsEffect(effects, RevealExports{Formats: []subtitles.Format{subtitles.SRT}}) {
		t.Errorf("effects = %#v, want only srt revealed", effects)
	}
	if _, err := c.Export(subtitles.VTT); !errors.Is(err, subtitles.ErrFormatUnavailable) {
		t.Errorf("Export(vtt) error = %v, want ErrFormatUnavailable", err)
	}
}

func TestContext_Snapshot(t *testing.T) {
	c := pending(t, subtitles.Submission{URL: "https://host/path/audio123.mp3"})
	c, _ = c.Resolve(sampleResult("hello"), SourcePush)

	snap := c.Snapshot()
	if snap.State != Resolved || snap.Source != SourcePush || snap.Transcript != "hello" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Name != "audio123.mp3" {
		t.Errorf("Name = %q", snap.Name)
	}
	if !reflect.DeepEqual(snap.Formats, []subtitles.Format{subtitles.SRT, subtitles.VTT}) {
		t.Errorf("Formats = %v", snap.Formats)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{Idle: "idle", Pending: "pending", Resolved: "resolved", State(9): "unknown"}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}

func containsEffect(effects []Effect, want Effect) bool {
	for _, e := range effects {
		if reflect.DeepEqual(e, want) {
			return true
		}
	}
	return false
}
