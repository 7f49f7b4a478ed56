package handlers

import "testing"

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text     string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{text: "/habits", wantName: "habits", wantOK: true},
		{text: "/habits@HabitBot", wantName: "habits", wantOK: true},
		{text: "/done 12", wantName: "done", wantArgs: "12", wantOK: true},
		{text: "/done@HabitBot   12 ", wantName: "done", wantArgs: "12", wantOK: true},
		{text: "/start\nabc", wantName: "start", wantArgs: "abc", wantOK: true},
		{text: "/startfoo", wantName: "startfoo", wantOK: true},
		{text: "hello", wantOK: false},
		{text: "/", wantOK: false},
	}
	for _, tc := range cases {
		name, args, ok := splitCommand(tc.text)
		if name != tc.wantName || args != tc.wantArgs || ok != tc.wantOK {
			t.Fatalf("splitCommand(%q) = %q, %q, %v; want %q, %q, %v", tc.text, name, args, ok, tc.wantName, tc.wantArgs, tc.wantOK)
		}
	}
}

func TestMatchCommand(t *testing.T) {
	start := matchCommand("start")
	habits := matchCommand("habits")

	if !start(newTestUpdate("/start abc", 1)) {
		t.Fatalf("expected /start with a code to match")
	}
	if start(newTestUpdate("/startfoo", 1)) {
		t.Fatalf("expected /startfoo not to match /start")
	}
	if !habits(newTestUpdate("/habits@HabitBot", 1)) {
		t.Fatalf("expected the group chat form to match")
	}
	if habits(newTestUpdate("habits", 1)) {
		t.Fatalf("expected plain text not to match")
	}
	if habits(newTestCallbackUpdate("h:list", 1, 1, 1)) {
		t.Fatalf("expected callback updates not to match")
	}
}

func TestMatchHabitCallback(t *testing.T) {
	if !matchHabitCallback(newTestCallbackUpdate("h:done:3", 1, 1, 1)) {
		t.Fatalf("expected habit callback to match")
	}
	if matchHabitCallback(newTestCallbackUpdate("s:lang:en", 1, 1, 1)) {
		t.Fatalf("expected foreign callback data not to match")
	}
	if matchHabitCallback(newTestUpdate("/habits", 1)) {
		t.Fatalf("expected messages not to match")
	}
}
