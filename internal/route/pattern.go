package route

import (
	"fmt"
	"net/url"
	"strings"
)

// segment はパスパターンの1要素。variableが空ならliteralと完全一致させる。
type segment struct {
	literal  string
	variable string
}

// pattern は "/2017/{slug}" 形式のパスパターン。
// 末尾のスラッシュは区別する（"/2017" と "/2017/" は別のパターン）。
type pattern struct {
	raw      string
	segments []segment
}

func parsePattern(raw string) (pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}

	parts := strings.Split(raw[1:], "/")
	segs := make([]segment, 0, len(parts))
	seen := map[string]bool{}

	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return pattern{}, fmt.Errorf("pattern %q has an empty variable name", raw)
			}
			if seen[name] {
				return pattern{}, fmt.Errorf("pattern %q declares variable %q twice", raw, name)
			}
			seen[name] = true
			segs = append(segs, segment{variable: name})
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return pattern{}, fmt.Errorf("pattern %q: variables must span a whole segment", raw)
		}
		segs = append(segs, segment{literal: part})
	}

	return pattern{raw: raw, segments: segs}, nil
}

// match はエスケープ済みのリクエストパスを照合し、デコード済みの変数を返す。
func (p pattern) match(escapedPath string) (map[string]string, bool) {
	if !strings.HasPrefix(escapedPath, "/") {
		return nil, false
	}
	parts := strings.Split(escapedPath[1:], "/")
	if len(parts) != len(p.segments) {
		return nil, false
	}

	var vars map[string]string
	for i, seg := range p.segments {
		value, err := url.PathUnescape(parts[i])
		if err != nil {
			return nil, false
		}
		if seg.variable == "" {
			if value != seg.literal {
				return nil, false
			}
			continue
		}
		if value == "" {
			return nil, false
		}
		if vars == nil {
			vars = make(map[string]string, len(p.segments))
		}
		vars[seg.variable] = value
	}
	if vars == nil {
		vars = map[string]string{}
	}
	return vars, true
}

// joinPattern はネストのプレフィックスとパターンを結合する。
func joinPattern(prefix, p string) string {
	if prefix == "" {
		return p
	}
	if p == "" {
		return prefix
	}
	return strings.TrimRight(prefix, "/") + p
}
