package store

import "testing"

func TestEmbedText(t *testing.T) {
	d := Document{Title: "Title", Content: "body text"}
	if got := EmbedText(d); got != "Title. body text" {
		t.Errorf("expected 'Title. body text', got %q", got)
	}

	d.Title = ""
	if got := EmbedText(d); got != "body text" {
		t.Errorf("expected 'body text', got %q", got)
	}
}

func TestContentHash_CoversTitle(t *testing.T) {
	a := ContentHash(EmbedText(Document{Title: "Greeting", Content: "same body"}))
	b := ContentHash(EmbedText(Document{Title: "Farewell", Content: "same body"}))
	if a == b {
		t.Fatal("a title change should alter the embed-text hash")
	}

	c := ContentHash(EmbedText(Document{Title: "Greeting", Content: "same body"}))
	if a != c {
		t.Fatal("identical documents should hash identically")
	}
}
