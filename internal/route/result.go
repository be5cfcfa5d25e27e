package route

import (
	"maps"
	"net/http"
)

// Result はハンドラーの戻り値。View・Redirect・Statusのいずれか。
type Result interface {
	isResult()
}

// View はテンプレート名とモデルで描画されるレスポンス。
// モデル装飾フィルターが属性を追加する対象はViewのみ。
type View struct {
	Name   string
	Status int
	Model  map[string]any
}

// Redirect はLocationヘッダーのみを返すレスポンス。
type Redirect struct {
	Location string
	Status   int
}

// Status はボディを持たないステータスコードのみのレスポンス。
type Status struct {
	Code int
}

func (*View) isResult()     {}
func (*Redirect) isResult() {}
func (*Status) isResult()   {}

// Render は200で描画するViewを返す。modelはnilでもよい。
func Render(name string, model map[string]any) *View {
	if model == nil {
		model = map[string]any{}
	}
	return &View{Name: name, Status: http.StatusOK, Model: model}
}

// WithAttributes はattrsをマージした新しいViewを返す。
// 同名のキーはattrsで上書きされる。元のViewは変更しない。
func (v *View) WithAttributes(attrs map[string]any) *View {
	merged := make(map[string]any, len(v.Model)+len(attrs))
	maps.Copy(merged, v.Model)
	maps.Copy(merged, attrs)
	return &View{Name: v.Name, Status: v.Status, Model: merged}
}

// SeeOther は303リダイレクトを返す。
func SeeOther(location string) *Redirect {
	return &Redirect{Location: location, Status: http.StatusSeeOther}
}

// PermanentRedirect は301リダイレクトを返す。
func PermanentRedirect(location string) *Redirect {
	return &Redirect{Location: location, Status: http.StatusMovedPermanently}
}

// WithStatus はステータスコードのみのレスポンスを返す。
func WithStatus(code int) *Status {
	return &Status{Code: code}
}
