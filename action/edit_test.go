package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"auralite/llm"
)

func TestEditAppliesRewrite(t *testing.T) {
	reply := "<thinking>the second line</thinking>\n<updated_content>\na\nB\nc\n</updated_content>"
	e := newEnv(t, "n.md", "a\nb\nc\n", llm.FakeReply{Text: reply})
	e.ctx.Results.Set("userInput", "capitalize b")

	if err := NewEdit().Execute(context.Background(), e.ctx); err != nil {
		t.Fatal(err)
	}
	if got := e.read(t, "n.md"); got != "a\nB\nc" {
		t.Errorf("note = %q", got)
	}

	prompt := e.llm.Requests()[0].Messages[0].Content
	if !strings.Contains(prompt, "<original_content> a\nb\nc\n </original_content>") {
		t.Errorf("prompt missing file content: %q", prompt)
	}
	if !strings.Contains(prompt, "<update_instructions> capitalize b </update_instructions>") {
		t.Errorf("prompt missing instructions: %q", prompt)
	}
	if e.llm.Schemas()[0] != nil {
		t.Error("edit should use a raw completion")
	}
}

func TestEditConflictLeavesFile(t *testing.T) {
	e := newEnv(t, "n.md", "one\ntwo\nthree\n")
	ctx := context.Background()

	inv, err := NewEdit().PreExecute(ctx, e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.vault.Modify("n.md", "one\nTWO by hand\nthree\n"); err != nil {
		t.Fatal(err)
	}

	err = inv.Perform(ctx, e.ctx, Output{Text: "<updated_content>one\n2\nthree</updated_content>"})
	if !errors.Is(err, ErrMergeConflict) {
		t.Fatalf("err = %v, want ErrMergeConflict", err)
	}
	if got := e.read(t, "n.md"); got != "one\nTWO by hand\nthree\n" {
		t.Errorf("note modified on conflict: %q", got)
	}
}

func TestEditMergesConcurrentChange(t *testing.T) {
	original := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\n"
	e := newEnv(t, "n.md", original)
	ctx := context.Background()

	inv, err := NewEdit().PreExecute(ctx, e.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := e.ctx.Results.Get("currentFileContent"); v != original {
		t.Errorf("currentFileContent = %v", v)
	}
	e.vault.Modify("n.md", "ALPHA\nbeta\ngamma\ndelta\nepsilon\nzeta\n")

	proposed := "alpha\nbeta\ngamma\ndelta\nepsilon\nZETA"
	if err := inv.Perform(ctx, e.ctx, Output{Text: "<updated_content>" + proposed + "</updated_content>"}); err != nil {
		t.Fatal(err)
	}
	if got, want := e.read(t, "n.md"), "ALPHA\nbeta\ngamma\ndelta\nepsilon\nZETA\n"; got != want {
		t.Errorf("note = %q, want %q", got, want)
	}
}

func TestEditWithoutUpdatedContent(t *testing.T) {
	e := newEnv(t, "n.md", "x", llm.FakeReply{Text: "I could not do that."})
	err := NewEdit().Execute(context.Background(), e.ctx)
	if !errors.Is(err, ErrNoUpdatedContent) {
		t.Fatalf("err = %v, want ErrNoUpdatedContent", err)
	}
	if got := e.read(t, "n.md"); got != "x" {
		t.Errorf("note = %q", got)
	}
}

func TestExtractUpdatedContent(t *testing.T) {
	got, ok := ExtractUpdatedContent("pre <updated_content>\n first \n</updated_content> <updated_content>second</updated_content>")
	if !ok || got != "first" {
		t.Errorf("got %q %v", got, ok)
	}
	if _, ok := ExtractUpdatedContent("<updated_content>open"); ok {
		t.Error("unterminated tag matched")
	}
}

func TestMerge3(t *testing.T) {
	tests := []struct {
		name                     string
		live, original, proposed string
		want                     string
		conflict                 bool
	}{
		{"live unchanged", "a\nb\n", "a\nb\n", "a\nB", "a\nB", false},
		{"nothing proposed", "a\nX\n", "a\nb\n", "a\nb", "a\nX\n", false},
		{"same change", "a\nB\n", "a\nb\n", "a\nB", "a\nB\n", false},
		{"disjoint", "1\n2\n3\n4\n5\n6\n7\n", "1\n2\n3\n4\n5\n6\n7\n", "1\n2\n3\n4\n5\n6\nseven", "1\n2\n3\n4\n5\n6\nseven", false},
		{"disjoint both sides", "one\n2\n3\n4\n5\n6\n7\n", "1\n2\n3\n4\n5\n6\n7\n", "1\n2\n3\n4\n5\n6\nseven", "one\n2\n3\n4\n5\n6\nseven\n", false},
		{"overlap", "1\nlive\n3\n", "1\n2\n3\n", "1\nmodel\n3", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge3(tt.live, tt.original, tt.proposed)
			if tt.conflict {
				if !errors.Is(err, ErrMergeConflict) {
					t.Fatalf("err = %v, want ErrMergeConflict", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
