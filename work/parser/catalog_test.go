package parser

import (
	"testing"

	"moontv/work/types"
)

func TestParseDelimitedCategories(t *testing.T) {
	content := "央视,#genre#\n" +
		"标清→CCTV1,http://a/1.m3u8\n" +
		"卫视,#genre#\n" +
		"高清→湖南卫视 高清,http://b/1.m3u8\n" +
		"备用→湖南卫视 高清,http://b/2.m3u8\n"

	cats := ParseDelimited(content)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Name != "央视" || cats[1].Name != "卫视" {
		t.Errorf("first-seen category order broken: %s, %s", cats[0].Name, cats[1].Name)
	}

	if len(cats[1].Channels) != 1 {
		t.Fatalf("repeated channel name must merge, got %d channels", len(cats[1].Channels))
	}
	ch := cats[1].Channels[0]
	if len(ch.URLs) != 2 || ch.URLs[0] != "http://b/1.m3u8" || ch.URLs[1] != "http://b/2.m3u8" {
		t.Errorf("URL merge order broken: %v", ch.URLs)
	}
	if ch.Quality != types.QualityHD {
		t.Errorf("quality should derive from name, got %s", ch.Quality)
	}
	if ch.Format != types.FormatHLS {
		t.Errorf("format should derive from first URL, got %s", ch.Format)
	}
}

func TestParseDelimitedDuplicateURL(t *testing.T) {
	content := "卫视,#genre#\n" +
		"a→Chan,http://x\n" +
		"b→Chan,http://x\n" +
		"c→Chan,http://y\n"

	cats := ParseDelimited(content)
	if len(cats) != 1 || len(cats[0].Channels) != 1 {
		t.Fatalf("unexpected shape: %+v", cats)
	}
	urls := cats[0].Channels[0].URLs
	if len(urls) != 2 || urls[0] != "http://x" || urls[1] != "http://y" {
		t.Errorf("exact duplicate URL must be suppressed: %v", urls)
	}
}

func TestParseDelimitedSkipsMalformed(t *testing.T) {
	content := "央视,#genre#\n" +
		"no separator here\n" +
		"with→but no comma\n" +
		"ok→CCTV1,http://a\n"

	cats := ParseDelimited(content)
	if len(cats) != 1 || len(cats[0].Channels) != 1 {
		t.Fatalf("malformed lines must be skipped, got %+v", cats)
	}
}

func TestParseDelimitedDefaultBucket(t *testing.T) {
	content := "x→Orphan,http://a\n央视,#genre#\nx→CCTV1,http://b\n"

	cats := ParseDelimited(content)
	if len(cats) != 2 {
		t.Fatalf("expected default bucket plus one category, got %d", len(cats))
	}
	if cats[0].Name != DefaultCategory {
		t.Errorf("channels before the first marker belong to %q, got %q", DefaultCategory, cats[0].Name)
	}
}

func TestParseDelimitedDropsEmptyCategories(t *testing.T) {
	content := "空的,#genre#\n央视,#genre#\nx→CCTV1,http://a\n"

	cats := ParseDelimited(content)
	if len(cats) != 1 || cats[0].Name != "央视" {
		t.Fatalf("empty categories must be dropped, got %+v", cats)
	}
}

func TestParseDelimitedChannelIDCharset(t *testing.T) {
	cats := ParseDelimited("央视,#genre#\nx→CCTV 5+ (体育),http://a\n")
	id := cats[0].Channels[0].ID
	for _, r := range id {
		ok := r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || (r >= 0x4e00 && r <= 0x9fff)
		if !ok {
			t.Fatalf("id %q contains disallowed rune %q", id, r)
		}
	}
}

func TestMaterializeGroupsByCategory(t *testing.T) {
	items := []types.PlaylistItem{
		{Name: "B", URL: "http://b", Category: "News"},
		{Name: "A", URL: "http://a", Category: "News"},
		{Name: "C", URL: "http://c"},
	}

	cats := Materialize(items)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Name != "News" {
		t.Errorf("first-seen order broken: %s", cats[0].Name)
	}
	if cats[1].Name != DefaultCategory {
		t.Errorf("uncategorized items belong to %q, got %q", DefaultCategory, cats[1].Name)
	}
	// channels sort by name within a category
	if cats[0].Channels[0].Name != "A" || cats[0].Channels[1].Name != "B" {
		t.Errorf("channels not sorted by name: %s, %s", cats[0].Channels[0].Name, cats[0].Channels[1].Name)
	}
}

func TestParseCatalogSniffing(t *testing.T) {
	delimited := "央视,#genre#\nx→CCTV1,http://a\n"
	m3u := "#EXTM3U\n#EXTINF:-1,Chan\nhttp://a\n"
	flat := `[{"title":"Chan","stream":"http://a"}]`
	doc := `{"categories":[{"name":"央视","channels":[{"name":"CCTV1","urls":["http://a"]}]}]}`

	for _, tc := range []struct {
		content  string
		channels int
	}{
		{delimited, 1},
		{m3u, 1},
		{flat, 1},
		{doc, 1},
		{"{not json", 0},
		{"", 0},
	} {
		cats := ParseCatalog(tc.content)
		total := 0
		for _, c := range cats {
			total += len(c.Channels)
		}
		if total != tc.channels {
			t.Errorf("ParseCatalog(%.20q) yielded %d channels, want %d", tc.content, total, tc.channels)
		}
	}
}
