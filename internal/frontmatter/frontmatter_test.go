package frontmatter

import (
	"strings"
	"testing"

	"github.com/dpshade/pocket-meta/internal/errors"
)

func TestInsertWithoutFrontMatter(t *testing.T) {
	docs := []string{
		"# Heading\n\nSome text.\n",
		"",
		"no newline at end",
		"--- not a delimiter\nbody",
	}
	for _, doc := range docs {
		got := Insert(doc, "title: x\ntags: [a]", false)
		want := "---\ntitle: x\ntags: [a]\n---\n\n" + doc
		if got != want {
			t.Errorf("Insert(%q) =\n%q\nwant\n%q", doc, got, want)
		}
	}
}

func TestInsertMalformedFrontMatterPrepends(t *testing.T) {
	doc := "---\ntitle: broken\nbody without closing"
	got := Insert(doc, "title: fixed", true)
	want := "---\ntitle: fixed\n---\n\n" + doc
	if got != want {
		t.Errorf("Insert() =\n%q\nwant\n%q", got, want)
	}
}

func TestInsertReplace(t *testing.T) {
	doc := "---\ncreated: 2023-01-01\ntags: [a]\n---\n\n# Body\ntext\n"
	got := Insert(doc, "title: new", true)
	want := "---\ntitle: new\n---\n\n# Body\ntext\n"
	if got != want {
		t.Errorf("Insert() =\n%q\nwant\n%q", got, want)
	}
}

func TestInsertMerge(t *testing.T) {
	doc := "---\ncreated: 2023-01-01\ntags: [a]\n---\n\nBody\n"
	got := Insert(doc, "tags: [b]\ntitle: \"x\"", false)

	fm, body, ok := Split(got)
	if !ok {
		t.Fatalf("Merged document has no front matter: %q", got)
	}
	if body != "\nBody\n" {
		t.Errorf("Body changed: %q", body)
	}
	want := "tags: [b]\ntitle: \"x\"\ncreated: 2023-01-01"
	if fm != want {
		t.Errorf("Merged front matter =\n%s\nwant\n%s", fm, want)
	}
	if strings.Contains(fm, "tags: [a]") {
		t.Error("Old tags should be dropped when new metadata redefines them")
	}
}

func TestMergeKeepsContinuationLines(t *testing.T) {
	old := "aliases:\n  - one\n  - two\ntags:\n  - old\nrating: 4"
	newYAML := "tags:\n  - new\ntitle: t"

	got := Merge(old, newYAML)
	want := "tags:\n  - new\ntitle: t\naliases:\n  - one\n  - two\nrating: 4"
	if got != want {
		t.Errorf("Merge() =\n%s\nwant\n%s", got, want)
	}
}

func TestSplitAndExtractBody(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		fm     string
		body   string
		ok     bool
		stripd string
	}{
		{"with block", "---\na: 1\n---\n\nhello", "a: 1", "\nhello", true, "hello"},
		{"empty block", "---\n---\nhello", "", "hello", true, "hello"},
		{"crlf", "---\r\na: 1\r\n---\r\nhello", "a: 1", "hello", true, "hello"},
		{"none", "hello\n---\n", "", "hello\n---\n", false, "hello\n---\n"},
		{"unclosed", "---\na: 1\n", "", "---\na: 1\n", false, "---\na: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, ok := Split(tt.doc)
			if fm != tt.fm || body != tt.body || ok != tt.ok {
				t.Errorf("Split() = (%q, %q, %v), want (%q, %q, %v)", fm, body, ok, tt.fm, tt.body, tt.ok)
			}
			if got := ExtractBody(tt.doc); got != tt.stripd {
				t.Errorf("ExtractBody() = %q, want %q", got, tt.stripd)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	got := Keys("title: a\ntags:\n  - x\n# comment\ncreated: 2024-01-01")
	want := []string{"title", "tags", "created"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestValidateStrict(t *testing.T) {
	if err := ValidateStrict("title: a\ntags: [x, y]"); err != nil {
		t.Errorf("Valid YAML rejected: %v", err)
	}
	if err := ValidateStrict(""); err != nil {
		t.Errorf("Empty text rejected: %v", err)
	}
	for _, bad := range []string{"tags: [a, b", "just a sentence"} {
		err := ValidateStrict(bad)
		if err == nil {
			t.Errorf("ValidateStrict(%q) should fail", bad)
			continue
		}
		if errors.CodeOf(err) != errors.ErrCodeParsingError {
			t.Errorf("ValidateStrict(%q) code = %s", bad, errors.CodeOf(err))
		}
	}
}
