package formatter

import (
	"testing"
	"time"

	"github.com/dpshade/pocket-meta/internal/errors"
)

func fixedFormatter() *Formatter {
	return NewWithClock(func() time.Time {
		return time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	})
}

func TestFormatSingleTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Machine Learning", "machine-learning"},
		{"机器 学习", "机器学习"},
		{"  snake_case_tag ", "snake-case-tag"},
		{"C++ & Go!!", "c-go"},
		{"--already-fine--", "already-fine"},
		{`"Quoted Tag"`, "quoted-tag"},
		{"深度_学习 AI", "深度学习AI"},
		{"Café Culture", "café-culture"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatSingleTag(tt.in); got != tt.want {
				t.Errorf("FormatSingleTag(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatPipeline(t *testing.T) {
	f := fixedFormatter()

	tests := []struct {
		name     string
		raw      string
		template string
		want     string
	}{
		{
			name: "code fence with language tag",
			raw:  "```yaml\ntitle: Hello World\ntags: [AI, Machine Learning]\n```",
			want: "title: hello-world\ntags: [ai, machine-learning]",
		},
		{
			name: "bare fence and echoed delimiters",
			raw:  "```\n---\ntitle: x\n---\n```",
			want: "title: x",
		},
		{
			name: "block list tags",
			raw:  "tags:\n  - Deep Learning\n  - 神经 网络\nsummary: fine",
			want: "tags:\n  - deep-learning\n  - 神经网络\nsummary: fine",
		},
		{
			name: "date placeholder",
			raw:  "created: {{date}}\nupdated: {{date}}",
			want: "created: 2025-02-03\nupdated: 2025-02-03",
		},
		{
			name:     "empty dated key filled from template",
			raw:      "title: a\ncreated:",
			template: "title:\ncreated: {{date}}",
			want:     "title: a\ncreated: 2025-02-03",
		},
		{
			name: "empty inline tags",
			raw:  "tags: []",
			want: "tags: []",
		},
		{
			name: "nested title untouched",
			raw:  "book:\n  title: The Great Gatsby",
			want: "book:\n  title: The Great Gatsby",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Format(tt.raw, tt.template)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Format() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestFormatRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   \n\n", "```yaml\n```", "---\n---"} {
		_, err := Format(raw, "")
		if err == nil {
			t.Errorf("Format(%q) should fail", raw)
			continue
		}
		if errors.CodeOf(err) != errors.ErrCodeParsingError {
			t.Errorf("Format(%q) code = %s, want %s", raw, errors.CodeOf(err), errors.ErrCodeParsingError)
		}
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	f := fixedFormatter()
	inputs := []string{
		"title: my-note\ntags: [a, b-c]\ncreated: 2024-01-01",
		"```yaml\ntitle: Some Title\ntags:\n- One Tag\n- 标签 二\ncreated: {{date}}\n```",
		"---\ntitle: 'Quoted'\ntags: [\"X Y\", z]\n---",
	}

	for _, in := range inputs {
		once, err := f.Format(in, "created: {{date}}")
		if err != nil {
			t.Fatalf("Format(%q) error = %v", in, err)
		}
		twice, err := f.Format(once, "created: {{date}}")
		if err != nil {
			t.Fatalf("Format(%q) second pass error = %v", once, err)
		}
		if once != twice {
			t.Errorf("Format not idempotent:\nonce:  %q\ntwice: %q", once, twice)
		}
	}
}

func TestStepOrder(t *testing.T) {
	want := []string{"stripCodeFence", "stripDelimiters", "rejectEmpty", "substituteDate", "normalizeTags", "normalizeTitle"}
	got := StepNames()
	if len(got) != len(want) {
		t.Fatalf("StepNames() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, got[i], want[i])
		}
	}
}
