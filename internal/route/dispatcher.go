package route

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/confsite/internal/metrics"
	"github.com/hitoshi/confsite/internal/model"
	"github.com/hitoshi/confsite/internal/session"
)

// Renderer はViewをHTMLとして書き出す。失敗時は*model.RenderingErrorを返す。
type Renderer interface {
	Render(w io.Writer, name string, data map[string]any) error
}

// ErrorWriter はエラーをHTTPレスポンスとして書き出す。
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// DispatcherConfig はDispatcherの依存関係。
type DispatcherConfig struct {
	Sessions    *session.Store
	Renderer    Renderer
	Filters     []Filter     // 先頭が最も外側
	Fallback    http.Handler // どのルールにも一致しない場合（静的ファイル等）
	ErrorWriter ErrorWriter
	Metrics     metrics.MetricsCollector
}

// Dispatcher はメディアタイプ条件でテーブルを選び、メソッドとパスでルールを選んで実行する。
type Dispatcher struct {
	tables     []*Table
	sessions   *session.Store
	renderer   Renderer
	handle     func(HandlerFunc) HandlerFunc
	fallback   http.Handler
	writeError ErrorWriter
	metrics    metrics.MetricsCollector
}

// compile-time interface check
var _ http.Handler = (*Dispatcher)(nil)

// NewDispatcher はcontributorsのテーブルを登録順に連結したDispatcherを生成する。
func NewDispatcher(cfg DispatcherConfig, contributors ...Contributor) (*Dispatcher, error) {
	if cfg.Sessions == nil || cfg.Renderer == nil || cfg.Metrics == nil {
		return nil, errors.New("dispatcher requires sessions, renderer and metrics")
	}

	var tables []*Table
	for _, c := range contributors {
		ts, err := c.Tables()
		if err != nil {
			return nil, fmt.Errorf("failed to build route tables: %w", err)
		}
		tables = append(tables, ts...)
	}

	d := &Dispatcher{
		tables:     tables,
		sessions:   cfg.Sessions,
		renderer:   cfg.Renderer,
		handle:     chainFilters(cfg.Filters),
		fallback:   cfg.Fallback,
		writeError: cfg.ErrorWriter,
		metrics:    cfg.Metrics,
	}
	if d.writeError == nil {
		d.writeError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, http.StatusText(model.StatusOf(err)), model.StatusOf(err))
		}
	}
	if d.fallback == nil {
		d.fallback = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d.writeError(w, r, model.ErrNoRouteMatched)
		})
	}
	return d, nil
}

// chainFilters はフィルターをハンドラーの外側に合成する関数を返す。
func chainFilters(filters []Filter) func(HandlerFunc) HandlerFunc {
	return func(h HandlerFunc) HandlerFunc {
		for i := len(filters) - 1; i >= 0; i-- {
			f, next := filters[i], h
			h = func(req *Request) (Result, error) {
				return f(req, next)
			}
		}
		return h
	}
}

// Match は条件に一致するテーブルを順に走査し、最初に一致したルールを返す。
func (d *Dispatcher) Match(r *http.Request) (*Rule, map[string]string, bool) {
	for _, t := range d.tables {
		if !t.predicate.Match(r) {
			continue
		}
		if rule, vars, ok := t.Match(r); ok {
			return rule, vars, true
		}
	}
	return nil, nil, false
}

// ServeHTTP はhttp.Handlerを実装する。
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rule, vars, ok := d.Match(r)
	if !ok {
		d.metrics.RecordDispatch(metrics.DispatchFallback)
		d.fallback.ServeHTTP(w, r)
		return
	}
	d.metrics.RecordDispatch(metrics.DispatchMatched)

	var result Result
	err := d.sessions.Scope(w, r, func(s *session.Session) error {
		req := &Request{HTTP: r, Vars: vars, Session: s}
		res, err := d.handle(rule.Handler)(req)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("%s %s: handler returned no result", rule.Method, rule.Pattern)
		}
		result = res
		return nil
	})
	if err != nil {
		var sessErr *model.SessionAccessError
		if errors.As(err, &sessErr) {
			d.metrics.RecordSessionFailure(sessErr.Op)
		}
		d.writeError(w, r, err)
		return
	}

	d.write(w, r, result)
}

// write はResultをレスポンスに書き出す。
// Viewは描画を完了してから書き出すため、描画失敗時に部分的なHTMLは送られない。
func (d *Dispatcher) write(w http.ResponseWriter, r *http.Request, result Result) {
	switch res := result.(type) {
	case *View:
		var buf bytes.Buffer
		if err := d.renderer.Render(&buf, res.Name, res.Model); err != nil {
			var rErr *model.RenderingError
			if !errors.As(err, &rErr) {
				err = &model.RenderingError{View: res.Name, Err: err}
			}
			d.writeError(w, r, err)
			return
		}
		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if _, err := buf.WriteTo(w); err != nil {
			slog.Debug("failed to write response body",
				slog.String("error", err.Error()),
			)
		}
	case *Redirect:
		w.Header().Set("Location", res.Location)
		w.WriteHeader(res.Status)
	case *Status:
		w.WriteHeader(res.Code)
	default:
		d.writeError(w, r, fmt.Errorf("unsupported result type %T", result))
	}
}
