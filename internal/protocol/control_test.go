package protocol

import "testing"

func TestParseControlLineAdd(t *testing.T) {
	cmd, err := ParseControlLine("add 1920x1080@1.5+100,200")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != ControlAddOutput {
		t.Fatalf("expected ControlAddOutput, got %v", cmd.Kind)
	}
	want := OutputSpec{Width: 1920, Height: 1080, Scale: 1.5, X: 100, Y: 200}
	if cmd.Output != want {
		t.Fatalf("parsed spec = %+v, want %+v", cmd.Output, want)
	}
}

func TestParseControlLineRemove(t *testing.T) {
	cmd, err := ParseControlLine("remove 3")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != ControlRemoveOutput || cmd.Index != 3 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseControlLineRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"frob",
		"add",
		"add 1920x1080",
		"add 1920x1080@1.0",
		"add 1920x1080@1.0+100",
		"remove",
		"remove notanumber",
	}
	for _, c := range cases {
		if _, err := ParseControlLine(c); err == nil {
			t.Fatalf("ParseControlLine(%q) should have failed", c)
		}
	}
}
