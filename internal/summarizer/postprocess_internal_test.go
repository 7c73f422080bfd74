package summarizer

import "testing"

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no block", "plain text", "plain text"},
		{"single block", "<think>reasoning</think>answer", "answer"},
		{"multiline block", "<think>a\nb\nc</think>\nanswer", "\nanswer"},
		{"two blocks", "<think>x</think>one<think>y</think>two", "onetwo"},
		{"reassembled block", "<thi<think>x</think>nk>y</think>z", "z"},
		{"unclosed block", "<think>dangling", "<think>dangling"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := StripThinking(test.in)
			if got != test.want {
				t.Fatalf("got %q want %q", got, test.want)
			}

			if again := StripThinking(got); again != got {
				t.Fatalf("expected stripping to be idempotent, got %q then %q", got, again)
			}
		})
	}
}

func TestBulletsToListItems(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"* one\n* two", "<li>one</li>\n<li>two</li>"},
		{"intro\n* one\nouter", "intro\n<li>one</li>\nouter"},
		{"*not a bullet", "*not a bullet"},
		{"  * indented", "  * indented"},
		{"- dash", "- dash"},
	}

	for _, test := range tests {
		if got := BulletsToListItems(test.in); got != test.want {
			t.Errorf("BulletsToListItems(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestPostProcess(t *testing.T) {
	got := PostProcess("<think>plan</think>\r\n* Point one\r\n* Point two\r\n")
	if got != "<li>Point one</li>\n<li>Point two</li>" {
		t.Fatalf("unexpected post-processed text: %q", got)
	}
}

func TestPostProcessNormalizesLineEndingsAndTrims(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf bullets", "* One\r\n* Two", "<li>One</li>\n<li>Two</li>"},
		{"surrounding blank lines", "\n\n  A paragraph.  \n\n", "A paragraph."},
		{"whitespace left by thinking", "<think>x</think>\n\n* Only", "<li>Only</li>"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := PostProcess(test.in); got != test.want {
				t.Fatalf("got %q want %q", got, test.want)
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 30},
		{"15", 15},
		{"15.9", 15},
		{" 7 ", 7},
		{"abc", 30},
		{"0", 30},
		{"-3", 30},
	}

	for _, test := range tests {
		if got := retryAfterSeconds(test.in); got != test.want {
			t.Errorf("retryAfterSeconds(%q) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestOptionalInt(t *testing.T) {
	if got := optionalInt(""); got != nil {
		t.Fatalf("expected nil for empty header, got %v", *got)
	}

	if got := optionalInt("12"); got == nil || *got != 12 {
		t.Fatalf("expected 12, got %v", got)
	}
}
