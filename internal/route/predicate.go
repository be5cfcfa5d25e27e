package route

import (
	"mime"
	"net/http"
	"strings"

	"github.com/munnerz/goautoneg"
)

// Predicate はルートテーブルを選択するためのメディアタイプ条件。
type Predicate interface {
	Match(r *http.Request) bool
	String() string
}

type acceptPredicate struct {
	typ, subtype string
}

// Accept はAcceptヘッダーがmediaTypeを受け入れるリクエストに一致する。
// Acceptヘッダーが無い場合はすべてを受け入れるとみなす。
func Accept(mediaType string) Predicate {
	typ, subtype, _ := strings.Cut(strings.ToLower(mediaType), "/")
	return acceptPredicate{typ: typ, subtype: subtype}
}

func (p acceptPredicate) Match(r *http.Request) bool {
	header := r.Header.Get("Accept")
	if strings.TrimSpace(header) == "" {
		return true
	}
	for _, a := range goautoneg.ParseAccept(header) {
		if a.Q <= 0 {
			continue
		}
		if (a.Type == "*" || strings.EqualFold(a.Type, p.typ)) &&
			(a.SubType == "*" || strings.EqualFold(a.SubType, p.subtype)) {
			return true
		}
	}
	return false
}

func (p acceptPredicate) String() string {
	return "accept(" + p.typ + "/" + p.subtype + ")"
}

type contentTypePredicate struct {
	mediaType string
}

// ContentType はContent-TypeがmediaTypeと一致するリクエストに一致する。
// charset等のパラメータは無視する。
func ContentType(mediaType string) Predicate {
	return contentTypePredicate{mediaType: strings.ToLower(mediaType)}
}

func (p contentTypePredicate) Match(r *http.Request) bool {
	header := r.Header.Get("Content-Type")
	if header == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mt == p.mediaType
}

func (p contentTypePredicate) String() string {
	return "contentType(" + p.mediaType + ")"
}

type anyPredicate struct{}

// Any はすべてのリクエストに一致する。
func Any() Predicate {
	return anyPredicate{}
}

func (anyPredicate) Match(*http.Request) bool { return true }
func (anyPredicate) String() string           { return "any" }
