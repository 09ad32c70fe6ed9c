package parser

import (
	"encoding/json"
	"testing"
)

func TestParseJSONFieldAliases(t *testing.T) {
	content := `[
		{"name":"A","url":"http://a","category":"News","logo":"http://l/a.png"},
		{"title":"B","stream":"http://b","group":"Sports","icon":"http://l/b.png"},
		{"name":"preferred","title":"ignored","url":"http://c"}
	]`

	items := ParseJSON(content)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Name != "A" || items[0].Category != "News" || items[0].Logo != "http://l/a.png" {
		t.Errorf("canonical fields broken: %+v", items[0])
	}
	if items[1].Name != "B" || items[1].URL != "http://b" || items[1].Category != "Sports" || items[1].Logo != "http://l/b.png" {
		t.Errorf("alias fields broken: %+v", items[1])
	}
	// alias order is deterministic: "name" wins over "title"
	if items[2].Name != "preferred" {
		t.Errorf("alias precedence broken: %q", items[2].Name)
	}
}

func TestParseJSONMalformed(t *testing.T) {
	for _, content := range []string{
		"not json at all",
		`{"name":"object not array"}`,
		`123`,
		``,
	} {
		if items := ParseJSON(content); len(items) != 0 {
			t.Errorf("ParseJSON(%q) should be empty, got %d items", content, len(items))
		}
	}
}

func TestParseJSONSkipsUnusableEntries(t *testing.T) {
	content := `[{"name":"no url"},{"url":"http://no-name"},{"name":"ok","url":"http://a"}]`

	items := ParseJSON(content)
	if len(items) != 1 || items[0].Name != "ok" {
		t.Fatalf("entries without name or URL must be skipped: %+v", items)
	}
}

func TestToJSONFirstURLOnly(t *testing.T) {
	cats := ParseDelimited("卫视,#genre#\na→Chan,http://first\nb→Chan,http://second\n")

	out := ToJSON(cats)
	var decoded []map[string]string
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("ToJSON output not valid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(decoded))
	}
	if decoded[0]["url"] != "http://first" {
		t.Errorf("must serialize the first URL only, got %q", decoded[0]["url"])
	}
	if decoded[0]["category"] != "卫视" {
		t.Errorf("unexpected category: %q", decoded[0]["category"])
	}
}

func TestParseCatalogDocument(t *testing.T) {
	doc := `{"categories":[
		{"name":"央视","channels":[
			{"name":"CCTV1","urls":["http://a","http://a","http://b"],"tags":["news"],"description":"综合频道"},
			{"name":"empty","urls":[]}
		]},
		{"name":"无频道","channels":[]}
	]}`

	cats, ok := ParseCatalogDocument(doc)
	if !ok {
		t.Fatal("expected a valid catalog document")
	}
	if len(cats) != 1 {
		t.Fatalf("categories without channels must be dropped, got %d", len(cats))
	}
	ch := cats[0].Channels[0]
	if len(ch.URLs) != 2 {
		t.Errorf("duplicate URLs must be suppressed: %v", ch.URLs)
	}
	if ch.ID == "" || ch.Format == "" || ch.Quality == "" {
		t.Errorf("derived fields must be filled in: %+v", ch)
	}
	if ch.Description != "综合频道" || len(ch.Tags) != 1 {
		t.Errorf("document metadata lost: %+v", ch)
	}
}
