package release

import "testing"

func TestParseVersion(t *testing.T) {
	cases := []struct {
		raw   string
		valid bool
		want  Version
	}{
		{raw: "v1.2.3", valid: true, want: Version{Major: 1, Minor: 2, Patch: 3}},
		{raw: "1.4", valid: true, want: Version{Major: 1, Minor: 4}},
		{raw: "v0.9.1-12-gabc1234f", valid: true, want: Version{Minor: 9, Patch: 1, Hash: "abc1234f"}},
		{raw: "v2.0.0+deadbeef", valid: true, want: Version{Major: 2, Hash: "deadbeef"}},
		{raw: "dev", valid: false},
		{raw: "", valid: false},
		{raw: "v1", valid: false},
		{raw: "v1.2.3.4", valid: false},
	}
	for _, tc := range cases {
		got, ok := ParseVersion(tc.raw)
		if ok != tc.valid {
			t.Fatalf("ParseVersion(%q) ok = %v, want %v", tc.raw, ok, tc.valid)
		}
		if !tc.valid {
			continue
		}
		if got != tc.want {
			t.Fatalf("ParseVersion(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestShouldOffer(t *testing.T) {
	cases := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{name: "newer patch", current: "v1.2.3", latest: "v1.2.4", want: true},
		{name: "newer major", current: "v1.9.9", latest: "v2.0.0", want: true},
		{name: "older latest", current: "v1.3.0", latest: "v1.2.9", want: false},
		{name: "equal no hashes", current: "v1.2.3", latest: "v1.2.3", want: false},
		{name: "equal different hash", current: "v1.2.3+abc1234", latest: "v1.2.3+def5678", want: true},
		{name: "equal one hash missing", current: "v1.2.3", latest: "v1.2.3+def5678", want: false},
	}
	for _, tc := range cases {
		current, ok := ParseVersion(tc.current)
		if !ok {
			t.Fatalf("%s: ParseVersion(%q) not valid", tc.name, tc.current)
		}
		latest, ok := ParseVersion(tc.latest)
		if !ok {
			t.Fatalf("%s: ParseVersion(%q) not valid", tc.name, tc.latest)
		}
		got, _ := ShouldOffer(current, latest)
		if got != tc.want {
			t.Fatalf("%s: ShouldOffer(%s, %s) = %v, want %v", tc.name, tc.current, tc.latest, got, tc.want)
		}
	}
}

func TestSupersedes(t *testing.T) {
	cases := []struct {
		name      string
		latest    string
		dismissed string
		want      bool
	}{
		{name: "same tag", latest: "v1.2.3", dismissed: "v1.2.3", want: false},
		{name: "latest newer than dismissed", latest: "v1.3.0", dismissed: "v1.2.3", want: true},
		{name: "latest older than dismissed", latest: "v1.2.2", dismissed: "v1.2.3", want: false},
		{name: "non semver exact match", latest: "nightly", dismissed: "NIGHTLY", want: false},
		{name: "non semver mismatch", latest: "nightly-2", dismissed: "nightly-1", want: true},
	}
	for _, tc := range cases {
		if got := Supersedes(tc.latest, tc.dismissed); got != tc.want {
			t.Fatalf("%s: Supersedes(%q, %q) = %v, want %v", tc.name, tc.latest, tc.dismissed, got, tc.want)
		}
	}
}
