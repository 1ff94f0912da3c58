package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/shellshield/shellshield/internal/patterns"
)

func words(texts ...string) []Token {
	toks := make([]Token, len(texts))
	for i, t := range texts {
		toks[i] = Token{Kind: Word, Text: t}
	}
	return toks
}

func op(text string) Token { return Token{Kind: Operator, Text: text} }

func TestTokenize_Basic(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []Token
	}{
		{
			name:    "plain words",
			command: "rm -rf /tmp/build",
			want:    words("rm", "-rf", "/tmp/build"),
		},
		{
			name:    "pipe",
			command: "cat access.log | wc -l",
			want:    []Token{{Word, "cat"}, {Word, "access.log"}, op("|"), {Word, "wc"}, {Word, "-l"}},
		},
		{
			name:    "logical operators without spaces",
			command: "make&&make install||echo failed",
			want: []Token{{Word, "make"}, op("&&"), {Word, "make"}, {Word, "install"},
				op("||"), {Word, "echo"}, {Word, "failed"}},
		},
		{
			name:    "semicolon and background",
			command: "sleep 1; long-task &",
			want:    []Token{{Word, "sleep"}, {Word, "1"}, op(";"), {Word, "long-task"}, op("&")},
		},
		{
			name:    "single quotes keep content literal",
			command: "echo 'rm -rf /'",
			want:    words("echo", "rm -rf /"),
		},
		{
			name:    "double quotes join into one word",
			command: `grep "two words" file`,
			want:    words("grep", "two words", "file"),
		},
		{
			name:    "escaped space glues a word",
			command: `ls my\ file`,
			want:    words("ls", "my file"),
		},
		{
			name:    "brace expansion stays literal",
			command: "rm file{1..3}",
			want:    words("rm", "file{1..3}"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.command)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.command, err)
			}
			assertTokens(t, got, tt.want)
		})
	}
}

func TestTokenize_Redirects(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []Token
	}{
		{
			name:    "output redirect",
			command: "echo hi > out.txt",
			want:    []Token{{Word, "echo"}, {Word, "hi"}, op(">"), {Word, "out.txt"}},
		},
		{
			name:    "append redirect",
			command: "echo hi >> out.txt",
			want:    []Token{{Word, "echo"}, {Word, "hi"}, op(">>"), {Word, "out.txt"}},
		},
		{
			name:    "stderr redirect",
			command: "build 2>errors.log",
			want:    []Token{{Word, "build"}, op("2>"), {Word, "errors.log"}},
		},
		{
			name:    "stderr append",
			command: "build 2>> errors.log",
			want:    []Token{{Word, "build"}, op("2>>"), {Word, "errors.log"}},
		},
		{
			name:    "here-string",
			command: "cat <<< hello",
			want:    []Token{{Word, "cat"}, op("<<<"), {Word, "hello"}},
		},
		{
			name:    "combined redirect",
			command: "run &> all.log",
			want:    []Token{{Word, "run"}, op("&>"), {Word, "all.log"}},
		},
		{
			name:    "fd duplication",
			command: "run > out.log 2>&1",
			want:    []Token{{Word, "run"}, op(">"), {Word, "out.log"}, op(">&"), {Word, "1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.command)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.command, err)
			}
			assertTokens(t, got, tt.want)
		})
	}
}

func TestTokenize_Expansions(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []Token
	}{
		{
			name:    "bare variable becomes placeholder",
			command: "$CMD file.txt",
			want:    words("${CMD}", "file.txt"),
		},
		{
			name:    "braced variable is preserved",
			command: "${TOOL} --version",
			want:    words("${TOOL}", "--version"),
		},
		{
			name:    "default form is preserved",
			command: "echo ${NAME:-fallback}",
			want:    words("echo", "${NAME:-fallback}"),
		},
		{
			name:    "command substitution stays one opaque word",
			command: "echo $(ls -la /tmp)",
			want:    words("echo", "$(ls -la /tmp)"),
		},
		{
			name:    "backticks stay opaque",
			command: "echo `date +%s`",
			want:    words("echo", "`date +%s`"),
		},
		{
			name:    "variable inside double quotes",
			command: `echo "hello $USER_NAME"`,
			want:    words("echo", "hello ${USER_NAME}"),
		},
		{
			name:    "process substitution",
			command: "diff <(sort a.txt) <(sort b.txt)",
			want: []Token{{Word, "diff"}, op("<("), {Word, "sort a.txt"},
				op("<("), {Word, "sort b.txt"}},
		},
		{
			name:    "output process substitution",
			command: "tee >(gzip -c - > out.gz)",
			want:    []Token{{Word, "tee"}, op(">("), {Word, "gzip -c - > out.gz"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.command)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.command, err)
			}
			assertTokens(t, got, tt.want)
		})
	}
}

func TestTokenize_Malformed(t *testing.T) {
	tests := []string{
		"echo 'unterminated",
		`echo "unterminated`,
		"echo $(ls",
		"echo `date",
		"ls | | wc",
	}
	for _, cmd := range tests {
		t.Run(cmd, func(t *testing.T) {
			if _, err := Tokenize(cmd); !errors.Is(err, ErrMalformed) {
				t.Errorf("Tokenize(%q) err = %v, want ErrMalformed", cmd, err)
			}
		})
	}
}

func TestTokenize_TooLong(t *testing.T) {
	_, err := Tokenize("echo " + strings.Repeat("x", patterns.MaxInputLength))
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("err = %v, want ErrTooLong", err)
	}
}

func TestTokenize_Empty(t *testing.T) {
	toks, err := Tokenize("")
	if err != nil {
		t.Fatalf("Tokenize(\"\") error: %v", err)
	}
	if len(toks) != 0 {
		t.Fatalf("expected no tokens, got %v", toks)
	}
}

func TestOperatorClassification(t *testing.T) {
	for _, c := range []string{"&&", "||", ";", "&", "|", "|&"} {
		if !IsControl(c) {
			t.Errorf("IsControl(%q) = false", c)
		}
	}
	for _, r := range []string{">", ">>", "<", "2>", "1>>", "&>", ">&", "<&", "<<<", "<>"} {
		if !IsRedirect(r) {
			t.Errorf("IsRedirect(%q) = false", r)
		}
	}
	if !IsPipe("|") || !IsPipe("|&") || IsPipe("||") {
		t.Error("pipe classification wrong")
	}
	if !IsProcessSubst("<(") || !IsProcessSubst(">(") || IsProcessSubst("<") {
		t.Error("process substitution classification wrong")
	}
}

func assertTokens(t *testing.T, got, want []Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d\n got: %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
