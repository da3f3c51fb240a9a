package internal

import "testing"

func TestResourceID(t *testing.T) {
	tests := []struct {
		userID, kind, name string
		want               string
	}{
		{"43819218-67b0", KindCategory, "tech", "user/43819218-67b0/category/tech"},
		{"u", KindTag, "global.saved", "user/u/tag/global.saved"},
		{"u", KindFeed, "", "user/u/feed/"},
		{"", KindEntry, "x", "user//entry/x"},
	}

	for _, tt := range tests {
		if got := ResourceID(tt.userID, tt.kind, tt.name); got != tt.want {
			t.Errorf("ResourceID(%q, %q, %q) = %q, want %q", tt.userID, tt.kind, tt.name, got, tt.want)
		}
	}
}

func TestGlobalResourceID(t *testing.T) {
	for _, label := range []string{LabelSaved, LabelRead, LabelUncategorized, LabelAll} {
		for _, kind := range []string{KindCategory, KindTag} {
			want := ResourceID("u1", kind, "global."+label)
			if got := GlobalResourceID("u1", kind, label); got != want {
				t.Errorf("GlobalResourceID(%q, %q) = %q, want %q", kind, label, got, want)
			}
		}
	}

	if got := GlobalResourceID("u1", KindTag, LabelSaved); got != "user/u1/tag/global.saved" {
		t.Errorf("unexpected saved tag id %q", got)
	}
}

func TestIsFeedID(t *testing.T) {
	cases := map[string]bool{
		"feed/http://example.com/rss":      true,
		"feed/":                            true,
		"user/u/category/tech":             false,
		"user/u/category/global.all":       false,
		"user/u/tag/global.saved":          false,
	}
	for id, want := range cases {
		if got := IsFeedID(id); got != want {
			t.Errorf("IsFeedID(%q) = %v, want %v", id, got, want)
		}
	}
}
