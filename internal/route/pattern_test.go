package route

import (
	"reflect"
	"testing"
)

func TestParsePattern_Invalid(t *testing.T) {
	for _, raw := range []string{"", "2017", "/{}", "/{a}/{a}", "/talk-{slug}", "/{slug"} {
		t.Run(raw, func(t *testing.T) {
			if _, err := parsePattern(raw); err == nil {
				t.Errorf("parsePattern(%q) should fail", raw)
			}
		})
	}
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		pattern  string
		path     string
		wantOK   bool
		wantVars map[string]string
	}{
		{"/", "/", true, map[string]string{}},
		{"/", "/about", false, nil},
		{"/2017", "/2017", true, map[string]string{}},
		{"/2017", "/2017/", false, nil},
		{"/2017/", "/2017/", true, map[string]string{}},
		{"/2017/{slug}", "/2017/my-talk", true, map[string]string{"slug": "my-talk"}},
		{"/2017/{slug}", "/2017/", false, nil},
		{"/2017/{slug}", "/2017/a/b", false, nil},
		{"/user/{login}", "/user/jean%20dupont", true, map[string]string{"login": "jean dupont"}},
		{"/user/{login}", "/user/a%2Fb", true, map[string]string{"login": "a/b"}},
		{"/user/{login}", "/user/%zz", false, nil},
		{"/blog/{slug}", "/blog/caf%C3%A9", true, map[string]string{"slug": "café"}},
		{"/a/{x}/{y}", "/a/1/2", true, map[string]string{"x": "1", "y": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			p, err := parsePattern(tt.pattern)
			if err != nil {
				t.Fatalf("parsePattern() error = %v", err)
			}
			vars, ok := p.match(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("match() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(vars, tt.wantVars) {
				t.Errorf("vars = %v, want %v", vars, tt.wantVars)
			}
		})
	}
}

func TestJoinPattern(t *testing.T) {
	tests := []struct{ prefix, pattern, want string }{
		{"", "/x", "/x"},
		{"/blog", "/", "/blog/"},
		{"/blog", "/{slug}", "/blog/{slug}"},
		{"/blog/", "/{slug}", "/blog/{slug}"},
		{"/blog", "", "/blog"},
	}
	for _, tt := range tests {
		if got := joinPattern(tt.prefix, tt.pattern); got != tt.want {
			t.Errorf("joinPattern(%q, %q) = %q, want %q", tt.prefix, tt.pattern, got, tt.want)
		}
	}
}
