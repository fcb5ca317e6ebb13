package stream

import "testing"

func mustParse(t *testing.T, line string) Event {
	t.Helper()
	ev, ok := ParseLine(line)
	if !ok {
		t.Fatalf("ParseLine(%q) rejected", line)
	}
	return ev
}

func TestParseLineDropsMalformedInput(t *testing.T) {
	for _, line := range []string{"", "not json", "[1,2,3]", `"scalar"`, "{broken", "{}"} {
		if ev, ok := ParseLine(line); ok {
			t.Fatalf("ParseLine(%q) = %#v, want rejection", line, ev)
		}
	}
}

func TestParseLineChatShapes(t *testing.T) {
	ev := mustParse(t, `{"type":"delta","delta":"He"}`)
	if ev.Type != EventDelta || ev.Delta != "He" {
		t.Fatalf("delta event = %#v", ev)
	}

	ev = mustParse(t, `{"type":"transcript","message":"calling tool"}`)
	if ev.Type != EventTranscript || ev.Transcript != "calling tool" {
		t.Fatalf("transcript event = %#v", ev)
	}

	ev = mustParse(t, `{"type":"final","answer":"Hello","streamed":true}`)
	if ev.Type != EventResult || ev.Result.Answer != "Hello" || !ev.Result.Streamed {
		t.Fatalf("final event = %#v", ev)
	}
}

func TestParseLineUntypedAnswerFallsBackToFinal(t *testing.T) {
	ev := mustParse(t, `{"answer":"done","status":""}`)
	if ev.Type != EventResult || ev.Result.Answer != "done" {
		t.Fatalf("fallback final = %#v", ev)
	}
}

func TestParseLineAcceptedEnvelope(t *testing.T) {
	ev := mustParse(t, `{"code":0,"data":{"id":"task-9"},"msg":"ok"}`)
	if ev.Type != EventAccepted || ev.AcceptedID != "task-9" {
		t.Fatalf("accepted event = %#v", ev)
	}

	// Non-zero code with no other signal is not an acknowledgment.
	if ev, ok := ParseLine(`{"code":1,"data":{"id":"task-9"}}`); ok {
		t.Fatalf("rejected envelope parsed as %#v", ev)
	}
}

func TestParseLineFlatStatusUpdate(t *testing.T) {
	ev := mustParse(t, `{"id":"job-1","status":"running","progress":41.6}`)
	if ev.Type != EventStatus || ev.Status != "running" {
		t.Fatalf("status event = %#v", ev)
	}
	if ev.Progress != 42 {
		t.Fatalf("progress = %d, want rounded 42", ev.Progress)
	}
}

func TestParseLineClampsProgress(t *testing.T) {
	if ev := mustParse(t, `{"status":"running","progress":180}`); ev.Progress != 100 {
		t.Fatalf("progress = %d, want 100", ev.Progress)
	}
	if ev := mustParse(t, `{"status":"running","progress":-3}`); ev.Progress != 0 {
		t.Fatalf("progress = %d, want 0", ev.Progress)
	}
	if ev := mustParse(t, `{"status":"running"}`); ev.Progress != -1 {
		t.Fatalf("absent progress = %d, want -1", ev.Progress)
	}
}

func TestParseLineResultPayloads(t *testing.T) {
	ev := mustParse(t, `{"status":"succeeded","result":{"url":"https://x/y.png"}}`)
	if ev.Type != EventResult || ev.Result.URL != "https://x/y.png" {
		t.Fatalf("result event = %#v", ev)
	}

	ev = mustParse(t, `{"results":[{"result_url":"https://x/v.mp4","pid":"p-7"}]}`)
	if ev.Type != EventResult || ev.Result.URL != "https://x/v.mp4" || ev.Result.PID != "p-7" {
		t.Fatalf("results event = %#v", ev)
	}
}

func TestParseLineCharacterIDForcesSuccess(t *testing.T) {
	// Character id extraction takes precedence over a stale status field.
	ev := mustParse(t, `{"status":"running","results":[{"character_id":"ch-12"}]}`)
	if ev.Type != EventResult || ev.Result.CharacterID != "ch-12" {
		t.Fatalf("character event = %#v", ev)
	}
	if ev.Status != "succeeded" {
		t.Fatalf("status = %q, want succeeded", ev.Status)
	}
}

func TestParseLineResultWinsOverFailedStatus(t *testing.T) {
	ev := mustParse(t, `{"status":"failed","results":[{"result_url":"https://x/v.mp4"}],"failure_reason":"output_moderation"}`)
	if ev.Type != EventResult {
		t.Fatalf("tie-break: event = %#v, want result", ev)
	}
}

func TestParseLineFailureWithoutResult(t *testing.T) {
	ev := mustParse(t, `{"status":"failed","failure_reason":"input_moderation","error":"blocked"}`)
	if ev.Type != EventFailure || ev.FailureReason != "input_moderation" || ev.ErrorDetail != "blocked" {
		t.Fatalf("failure event = %#v", ev)
	}

	// A bare pid is not a result and must not suppress the failure.
	ev = mustParse(t, `{"status":"failed","results":[{"pid":"p-1"}]}`)
	if ev.Type != EventFailure {
		t.Fatalf("pid-only tie-break: event = %#v, want failure", ev)
	}
}
