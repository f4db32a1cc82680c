package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	output []byte
	err    error

	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.gotName = name
	f.gotArgs = args
	return f.output, f.err
}

func TestParse_PagePerDocument(t *testing.T) {
	runner := &fakeRunner{output: []byte("Annual Report\nIntro text.\fSecond page body.\f")}
	p := NewWithRunner(runner)

	docs, err := p.Parse(context.Background(), strings.NewReader("%PDF-fake"), "report.pdf")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d units, want 2", len(docs))
	}

	if docs[0].Content != "Annual Report\nIntro text." {
		t.Errorf("page 1 content = %q", docs[0].Content)
	}
	if docs[0].Metadata.Page != 1 {
		t.Errorf("page 1 number = %d, want 1", docs[0].Metadata.Page)
	}
	if docs[1].Metadata.Page != 2 {
		t.Errorf("page 2 number = %d, want 2", docs[1].Metadata.Page)
	}

	// The title comes from the first non-empty page and is shared.
	for i, doc := range docs {
		if doc.Metadata.Title != "Annual Report" {
			t.Errorf("unit %d Title = %q, want Annual Report", i, doc.Metadata.Title)
		}
		if doc.Source != "report.pdf" {
			t.Errorf("unit %d Source = %q", i, doc.Source)
		}
		if doc.ContentType != "application/pdf" {
			t.Errorf("unit %d ContentType = %q", i, doc.ContentType)
		}
	}
}

func TestParse_BlankPagesSkippedPageNumbersKept(t *testing.T) {
	runner := &fakeRunner{output: []byte("First.\f   \fThird.")}
	p := NewWithRunner(runner)

	docs, err := p.Parse(context.Background(), strings.NewReader("%PDF-fake"), "gaps.pdf")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d units, want 2", len(docs))
	}
	if docs[0].Metadata.Page != 1 || docs[1].Metadata.Page != 3 {
		t.Errorf("pages = %d, %d, want 1, 3", docs[0].Metadata.Page, docs[1].Metadata.Page)
	}
}

func TestParse_InvokesPdftotext(t *testing.T) {
	runner := &fakeRunner{output: []byte("content")}
	p := NewWithRunner(runner)

	if _, err := p.Parse(context.Background(), strings.NewReader("%PDF-fake"), "doc.pdf"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if runner.gotName != "pdftotext" {
		t.Errorf("command = %q, want pdftotext", runner.gotName)
	}
	if len(runner.gotArgs) != 4 || runner.gotArgs[0] != "-enc" || runner.gotArgs[1] != "UTF-8" || runner.gotArgs[3] != "-" {
		t.Errorf("args = %v", runner.gotArgs)
	}
}

func TestParse_ToolFailure(t *testing.T) {
	runner := &fakeRunner{err: ErrToolNotFound}
	p := NewWithRunner(runner)

	_, err := p.Parse(context.Background(), strings.NewReader("%PDF-fake"), "doc.pdf")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}
