package hash

import "testing"

func TestValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "known vector",
			input: "abc",
			want:  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Value(tt.input); got != tt.want {
				t.Errorf("Value(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestValueDeterministic(t *testing.T) {
	if Value("192.0.2.1") != Value("192.0.2.1") {
		t.Error("same input should produce same digest")
	}
	if Value("192.0.2.1") == Value("192.0.2.2") {
		t.Error("different inputs should produce different digests")
	}
}

func TestIPTrimsWhitespace(t *testing.T) {
	if IP(" 192.0.2.1 ") != IP("192.0.2.1") {
		t.Error("IP should normalize surrounding whitespace before hashing")
	}
}

func TestUserAgentTrimsWhitespace(t *testing.T) {
	if UserAgent(" Mozilla/5.0 ") != UserAgent("Mozilla/5.0") {
		t.Error("UserAgent should normalize surrounding whitespace before hashing")
	}
}
