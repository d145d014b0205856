package hotkey

import "testing"

func TestParseBinding(t *testing.T) {
	tests := []struct {
		in      string
		want    Binding
		str     string
		wantErr bool
	}{
		{in: "ctrl+shift+space", want: Binding{Ctrl: true, Shift: true, Key: "space"}, str: "Ctrl+Shift+Space"},
		{in: " Ctrl + Shift + T ", want: Binding{Ctrl: true, Shift: true, Key: "t"}, str: "Ctrl+Shift+T"},
		{in: "alt+a", want: Binding{Alt: true, Key: "a"}, str: "Alt+A"},
		{in: "space", wantErr: true},
		{in: "ctrl+f1", wantErr: true},
		{in: "super+space", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBinding(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.str {
				t.Errorf("String = %q, want %q", got.String(), tt.str)
			}
		})
	}
}

func TestDefaultsParse(t *testing.T) {
	for _, s := range []string{DefaultAssistant, DefaultTranscribe} {
		if _, err := ParseBinding(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
}

func TestFakeRegister(t *testing.T) {
	fk := NewFake()
	var hk Hotkey = fk
	hk.Register()
	if !fk.Registered() {
		t.Fatal("not registered")
	}
	hk.Unregister()
	if fk.Registered() {
		t.Error("still registered")
	}
}
