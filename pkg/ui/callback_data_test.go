package ui

import (
	"strings"
	"testing"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{
			name:  "done",
			input: "h:done:42",
			want:  Action{Op: OpDone, HabitID: 42},
		},
		{
			name:  "toggle public",
			input: "h:pub:7",
			want:  Action{Op: OpPublic, HabitID: 7},
		},
		{
			name:  "history",
			input: "h:hist",
			want:  Action{Op: OpHistory},
		},
		{
			name:  "list",
			input: "h:list",
			want:  Action{Op: OpList},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "wrong prefix", input: "s:home", wantErr: true},
		{name: "done without id", input: "h:done", wantErr: true},
		{name: "zero id", input: "h:done:0", wantErr: true},
		{name: "negative id", input: "h:done:-1", wantErr: true},
		{name: "plus sign", input: "h:done:+1", wantErr: true},
		{name: "unknown op", input: "h:skip:1", wantErr: true},
		{name: "history with id", input: "h:hist:1", wantErr: true},
		{name: "too many parts", input: "h:done:1:2", wantErr: true},
		{name: "too long", input: "h:done:" + strings.Repeat("1", 60), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackData(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected action: got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildCallbacksRoundTrip(t *testing.T) {
	done, err := BuildDoneCallback(15)
	if err != nil || done != "h:done:15" {
		t.Fatalf("unexpected done callback %q, %v", done, err)
	}
	pub, err := BuildTogglePublicCallback(15)
	if err != nil || pub != "h:pub:15" {
		t.Fatalf("unexpected public callback %q, %v", pub, err)
	}
	if _, err := BuildDoneCallback(0); err == nil {
		t.Fatalf("expected error for zero habit id")
	}
	for _, data := range []string{done, pub} {
		if !IsHabitCallback(data) {
			t.Fatalf("expected %q to be recognised", data)
		}
		if _, err := ParseCallbackData(data); err != nil {
			t.Fatalf("failed to parse %q: %v", data, err)
		}
	}
}
