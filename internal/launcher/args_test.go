package launcher

import (
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"-w 1 -h 2", []string{"-w", "1", "-h", "2"}, false},
		{`--name "two words"`, []string{"--name", "two words"}, false},
		{`'single $HOME' x`, []string{"single $HOME", "x"}, false},
		{`a\ b c`, []string{"a b", "c"}, false},
		{`--empty ""`, []string{"--empty", ""}, false},
		{`"unterminated`, nil, true},
		{`trailing\`, []string{`trailing\`}, false},
		{`-config C:\Games\CG\server.ini -w`, []string{"-config", `C:\Games\CG\server.ini`, "-w"}, false},
		{`-data "C:\Program Files\CG\data" -x`, []string{"-data", `C:\Program Files\CG\data`, "-x"}, false},
		{`\\host\share\cfg.ini`, []string{`\\host\share\cfg.ini`}, false},
		{`--title "say \"hi\""`, []string{"--title", `say "hi"`}, false},
		{`it\'s`, []string{"it's"}, false},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitArgs(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArgs(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
