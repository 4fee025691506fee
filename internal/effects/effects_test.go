package effects

import "testing"

func TestPictureInPicture(t *testing.T) {
	p := PictureInPicture{Fraction: 6, X: 10, Y: 10}
	got := p.Filter("1:v", "0:v", 640, 480, "")
	want := "[1:v][0:v]scale2ref=(640/480)*ih/6/sar:ih/6[wm][base];[base][wm]overlay=10:10"
	if got != want {
		t.Errorf("Filter =\n%s\nwant\n%s", got, want)
	}
	if got := (PictureInPicture{}).Filter("2:v", "1:v", 4, 3, "main"); got != "[2:v][1:v]scale2ref=(4/3)*ih/6/sar:ih/6[wm][base];[base][wm]overlay=0:0[main]" {
		t.Errorf("labelled Filter = %s", got)
	}
}

func TestConcat(t *testing.T) {
	got := Concat([]Segment{{"0", "4"}, {"main", "3"}}, "v", "a")
	if got != "[0][4][main][3]concat=n=2:v=1:a=1[v][a]" {
		t.Errorf("Concat = %s", got)
	}
	got = Concat([]Segment{{"0", "4"}, {"main", "3"}, {"5", "4"}}, "v", "a")
	if got != "[0][4][main][3][5][4]concat=n=3:v=1:a=1[v][a]" {
		t.Errorf("Concat outro = %s", got)
	}
}

func TestChainSkipsEmpty(t *testing.T) {
	if got := Chain("a", "", "b"); got != "a;b" {
		t.Errorf("Chain = %q", got)
	}
}
