package crudform

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

var definitions = fstest.MapFS{
	"contacts.yaml": &fstest.MapFile{Data: []byte(`
forms:
  contacts:
    title: Contact
    fields:
      - name: email
        type: email
        required: true
`)},
}

func TestGenerateHTML(t *testing.T) {
	out, err := GenerateHTML(context.Background(), definitions, "contacts")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	html := string(out)
	for _, fragment := range []string{`id="cf-contacts"`, `data-field="email"`, `New Contact`} {
		if !strings.Contains(html, fragment) {
			t.Errorf("expected %q in output\n%s", fragment, html)
		}
	}
}

func TestGenerateHTMLUnknownForm(t *testing.T) {
	if _, err := GenerateHTML(context.Background(), definitions, "orders"); err == nil {
		t.Fatalf("expected unknown form error")
	}
}

func TestEmbeddedFilesystems(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/modal.tmpl"); err != nil {
		t.Fatalf("expected modal template: %v", err)
	}
	data, err := fs.ReadFile(AssetsFS(), "crudform.css")
	if err != nil {
		t.Fatalf("expected stylesheet: %v", err)
	}
	if !strings.Contains(string(data), ".cf-grid") {
		t.Fatalf("expected grid rules in stylesheet")
	}
}
