package extract

import (
	"fmt"
	"strings"
	"testing"
)

const imgPageURL = "https://example.com/recipes/42"

func TestCandidateImages_SourcePriority(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want string
	}{
		{
			name: "plain src",
			tag:  `<img src="https://example.com/step1.jpg">`,
			want: "https://example.com/step1.jpg",
		},
		{
			name: "data-src beats src",
			tag:  `<img src="https://example.com/placeholder.gif" data-src="https://example.com/real.jpg">`,
			want: "https://example.com/real.jpg",
		},
		{
			name: "data-lazy-src beats src",
			tag:  `<img data-lazy-src="https://example.com/lazy.jpg" src="https://example.com/placeholder.gif">`,
			want: "https://example.com/lazy.jpg",
		},
		{
			name: "srcset first entry as last resort",
			tag:  `<img srcset="https://example.com/small.jpg 480w, https://example.com/large.jpg 800w">`,
			want: "https://example.com/small.jpg",
		},
		{
			name: "relative src resolved against page",
			tag:  `<img src="/images/step2.jpg">`,
			want: "https://example.com/images/step2.jpg",
		},
		{
			name: "single quoted attribute",
			tag:  `<img src='https://example.com/single.jpg'>`,
			want: "https://example.com/single.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidateImages("<html><body>"+tt.tag+"</body></html>", imgPageURL)
			if len(got) != 1 {
				t.Fatalf("candidateImages() returned %d entries, want 1", len(got))
			}
			if got[0].Src != tt.want {
				t.Errorf("Src = %q, want %q", got[0].Src, tt.want)
			}
		})
	}
}

func TestCandidateImages_Denylist(t *testing.T) {
	html := `
		<img src="https://example.com/site-logo.png">
		<img src="https://example.com/icons/star.svg">
		<img src="https://example.com/user-avatar.jpg">
		<img src="https://example.com/steps/1.jpg">`
	got := candidateImages(html, imgPageURL)
	if len(got) != 1 {
		t.Fatalf("candidateImages() returned %d entries, want 1: %+v", len(got), got)
	}
	if got[0].Src != "https://example.com/steps/1.jpg" {
		t.Errorf("Src = %q, want the non-chrome image", got[0].Src)
	}
}

func TestCandidateImages_DedupBySource(t *testing.T) {
	html := `
		<img src="https://example.com/dish.jpg" alt="first">
		<img src="https://example.com/dish.jpg" alt="second">`
	got := candidateImages(html, imgPageURL)
	if len(got) != 1 {
		t.Fatalf("candidateImages() returned %d entries, want 1", len(got))
	}
	if got[0].Alt != "first" {
		t.Errorf("Alt = %q, want first occurrence kept", got[0].Alt)
	}
}

func TestCandidateImages_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxCandidateImages+10; i++ {
		fmt.Fprintf(&b, `<img src="https://example.com/step%d.jpg">`, i)
	}
	got := candidateImages(b.String(), imgPageURL)
	if len(got) != maxCandidateImages {
		t.Errorf("candidateImages() returned %d entries, want %d", len(got), maxCandidateImages)
	}
}

func TestCandidateImages_Context(t *testing.T) {
	html := `<p>玉ねぎをみじん切りにします</p><img src="https://example.com/onion.jpg" alt="玉ねぎ"><p>次にフライパンで炒めます</p>`
	got := candidateImages(html, imgPageURL)
	if len(got) != 1 {
		t.Fatalf("candidateImages() returned %d entries, want 1", len(got))
	}
	img := got[0]
	if img.Alt != "玉ねぎ" {
		t.Errorf("Alt = %q, want 玉ねぎ", img.Alt)
	}
	if !strings.Contains(img.Context, "みじん切り") || !strings.Contains(img.Context, "炒めます") {
		t.Errorf("Context missing surrounding text: %q", img.Context)
	}
	if strings.Contains(img.Context, "<") || strings.Contains(img.Context, ">") {
		t.Errorf("Context contains markup: %q", img.Context)
	}
}

func TestCandidateImages_ContextSnippetCap(t *testing.T) {
	long := strings.Repeat("説", 300)
	html := "<p>" + long + `</p><img src="https://example.com/x.jpg"><p>` + long + "</p>"
	got := candidateImages(html, imgPageURL)
	if len(got) != 1 {
		t.Fatalf("candidateImages() returned %d entries, want 1", len(got))
	}
	if n := len([]rune(got[0].Context)); n > contextSnippetLimit {
		t.Errorf("Context rune length = %d, want <= %d", n, contextSnippetLimit)
	}
}

func TestCandidateImages_SkipsUnresolvable(t *testing.T) {
	got := candidateImages(`<img alt="no source at all">`, imgPageURL)
	if len(got) != 0 {
		t.Errorf("candidateImages() returned %d entries, want 0", len(got))
	}
}
