package locator

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	testcases := []struct {
		input string
		err   error
		want  Locator
	}{
		{
			input: "hello",
			want:  Locator{Name: "hello", Tag: "latest"},
		},
		{
			input: "hello:1.0.0",
			want:  Locator{Name: "hello", Tag: "1.0.0"},
		},
		{
			input: "prompts/hello",
			want:  Locator{Path: "prompts", Name: "hello", Tag: "latest"},
		},
		{
			input: "prompts/greetings/hello:2.1",
			want:  Locator{Path: "prompts/greetings", Name: "hello", Tag: "2.1"},
		},
		{
			input: "registry.example.com/prompts/hello:1.0.0",
			want: Locator{
				Registry: "registry.example.com",
				Path:     "prompts",
				Name:     "hello",
				Tag:      "1.0.0",
			},
		},
		{
			input: "registry.example.com/hello",
			want: Locator{
				Registry: "registry.example.com",
				Name:     "hello",
				Tag:      "latest",
			},
		},
		{
			input: "localhost:3098/prompts/hello:stable",
			want: Locator{
				Registry: "localhost:3098",
				Path:     "prompts",
				Name:     "hello",
				Tag:      "stable",
			},
		},
		{
			input: "localhost/tools/searcher",
			want: Locator{
				Registry: "localhost",
				Path:     "tools",
				Name:     "searcher",
				Tag:      "latest",
			},
		},
		{
			// A dotless, colonless, non-localhost first segment is path.
			input: "team/prompts/hello",
			want:  Locator{Path: "team/prompts", Name: "hello", Tag: "latest"},
		},
		{
			input: "",
			err:   ErrEmpty,
		},
		{
			input: "a@b",
			err:   ErrInvalidCharacter,
		},
		{
			// Runes outside the segment alphabet cannot be stored, so
			// Parse rejects them up front.
			input: "café:1.0.0",
			err:   ErrInvalidCharacter,
		},
		{
			input: "prompts/héllo",
			err:   ErrInvalidCharacter,
		},
		{
			input: "prompts/hello!",
			err:   ErrInvalidCharacter,
		},
		{
			input: "prompts/hello#1",
			err:   ErrInvalidCharacter,
		},
		{
			input: "prompts/he llo",
			err:   ErrInvalidCharacter,
		},
		{
			input: "prompts//hello",
			err:   ErrInvalidCharacter,
		},
		{
			input: "/hello",
			err:   ErrInvalidCharacter,
		},
		{
			input: "hello:",
			err:   ErrEmptyTag,
		},
		{
			input: "prompts/:1.0.0",
			err:   ErrEmptyName,
		},
		{
			input: ":1.0.0",
			err:   ErrEmptyName,
		},
	}

	for _, testcase := range testcases {
		got, err := Parse(testcase.input)
		if testcase.err != nil {
			if !errors.Is(err, testcase.err) {
				t.Errorf("Parse(%q) error = %v, want %v", testcase.input, err, testcase.err)
			}
			if !IsParseError(err) {
				t.Errorf("IsParseError(%v) = false for input %q", err, testcase.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", testcase.input, err)
			continue
		}
		if got != testcase.want {
			t.Errorf("Parse(%q) = %#v, want %#v", testcase.input, got, testcase.want)
		}
	}
}

func TestString(t *testing.T) {
	testcases := []struct {
		locator Locator
		want    string
	}{
		{
			locator: Locator{Name: "hello", Tag: "latest"},
			want:    "hello",
		},
		{
			locator: Locator{Name: "hello", Tag: "1.0.0"},
			want:    "hello:1.0.0",
		},
		{
			locator: Locator{Path: "prompts", Name: "hello", Tag: "latest"},
			want:    "prompts/hello",
		},
		{
			locator: Locator{
				Registry: "localhost:3098",
				Path:     "prompts",
				Name:     "hello",
				Tag:      "stable",
			},
			want: "localhost:3098/prompts/hello:stable",
		},
		{
			locator: Locator{Registry: "registry.example.com", Name: "hello", Tag: "latest"},
			want:    "registry.example.com/hello",
		},
	}

	for _, testcase := range testcases {
		if got := testcase.locator.String(); got != testcase.want {
			t.Errorf("String() = %q, want %q", got, testcase.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"hello",
		"hello:1.0.0",
		"prompts/hello:2.0.0",
		"registry.example.com/prompts/hello",
		"localhost:3098/prompts/hello:stable",
		"team/prompts/greetings/hello",
	}
	for _, input := range inputs {
		first, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", input, err)
		}
		second, err := Parse(first.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", first.String(), err)
		}
		if first != second {
			t.Errorf("round trip of %q: %#v != %#v", input, first, second)
		}
	}
}

func TestIsLocalhost(t *testing.T) {
	testcases := []struct {
		registry string
		want     bool
	}{
		{"localhost", true},
		{"localhost:3098", true},
		{"registry.example.com", false},
		{"registry.example.com:443", false},
		{"", false},
	}
	for _, testcase := range testcases {
		l := Locator{Registry: testcase.registry, Name: "x", Tag: "latest"}
		if got := l.IsLocalhost(); got != testcase.want {
			t.Errorf("IsLocalhost() with registry %q = %v, want %v", testcase.registry, got, testcase.want)
		}
	}
}

func TestWithRegistry(t *testing.T) {
	l, err := Parse("prompts/hello:1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	bound := l.WithRegistry("registry.example.com")
	if bound.Registry != "registry.example.com" {
		t.Errorf("Registry = %q, want %q", bound.Registry, "registry.example.com")
	}
	if l.Registry != "" {
		t.Error("WithRegistry mutated the receiver")
	}
	if got := bound.WithRegistry("").String(); got != "prompts/hello:1.0.0" {
		t.Errorf("detached form = %q, want %q", got, "prompts/hello:1.0.0")
	}
}
