package normalizer

import "testing"

func TestTwitter(t *testing.T) {
	normalize := Twitter(Options{})

	cases := []struct {
		name string
		raw  string
		kind Kind
		want string
	}{
		{"bare handle", "@anilkirbas", KindCanonical, "https://twitter.com/anilkirbas"},
		{"http apex", "http://twitter.com/anilkirbas", KindCanonical, "https://twitter.com/anilkirbas"},
		{"www host", "https://www.twitter.com/atweed", KindCanonical, "https://twitter.com/atweed"},
		{"uppercase host", "https://WWW.Twitter.com/atweed", KindCanonical, "https://twitter.com/atweed"},
		{"at in path", "https://twitter.com/@atweed", KindCanonical, "https://twitter.com/atweed"},
		{"host as handle", "http://VIACONT", KindCanonical, "https://twitter.com/VIACONT"},
		{"at host", "http://@some_one", KindCanonical, "https://twitter.com/some_one"},
		{"hashbang fragment", "http://twitter.com/#!/kWhOURS", KindCanonical, "https://twitter.com/kWhOURS"},
		{"hashbang without slash", "http://twitter.com/#!kWhOURS", KindCanonical, "https://twitter.com/kWhOURS"},
		{"query dropped", "https://twitter.com/atweed?lang=en", KindCanonical, "https://twitter.com/atweed"},
		{"unknown dotted host", "https://noname.noname", KindInvalid, ""},
		{"host with port", "https://localhost:2", KindInvalid, ""},
		{"foreign host with path", "https://example.com/atweed", KindInvalid, ""},
		{"bad scheme", "ftp://twitter.com/atweed", KindInvalid, ""},
		{"empty", "", KindInvalid, ""},
		{"root only", "https://twitter.com/", KindInvalid, ""},
		{"bad fragment", "https://twitter.com/#about", KindInvalid, ""},
		{"nested path", "https://twitter.com/atweed/status/1", KindInvalid, ""},
		{"dash in handle", "https://twitter.com/a-tweed", KindInvalid, ""},
		{"unbalanced ipv6", "http://[::1/x", KindInvalid, ""},
		{"short link", "http://bit.ly/18isnNg", KindUnknown, ""},
		{"t.co link", "https://t.co/abc", KindUnknown, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalize(tc.raw)
			if got.Kind != tc.kind {
				t.Fatalf("Twitter(%q) kind = %v (%s), want %v", tc.raw, got.Kind, got.Reason, tc.kind)
			}
			if got.URL != tc.want {
				t.Errorf("Twitter(%q) = %q, want %q", tc.raw, got.URL, tc.want)
			}
			if got.Kind != KindCanonical && got.Reason == "" {
				t.Errorf("Twitter(%q) has no reason", tc.raw)
			}
		})
	}
}

func TestTwitter_ResolveShortLinks(t *testing.T) {
	normalize := Twitter(Options{ResolveShortLinks: true})
	got := normalize("http://bit.ly/18isnNg")
	if got.Kind != KindCanonical || got.URL != "http://bit.ly/18isnNg" {
		t.Errorf("got %+v, want short link forwarded as-is", got)
	}
}

func TestTwitter_Idempotent(t *testing.T) {
	normalize := Twitter(Options{})
	for _, raw := range []string{"@anilkirbas", "http://VIACONT", "http://twitter.com/#!/kWhOURS"} {
		first := normalize(raw)
		second := normalize(first.URL)
		if second.Kind != KindCanonical || second.URL != first.URL {
			t.Errorf("normalizing %q twice: %q then %+v", raw, first.URL, second)
		}
	}
}
