package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// StatusRecorder はHTTPステータスコードの記録先インターフェース。
// metrics.Collectorの部分集合として定義する。
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// statusCapturingWriter はレスポンスのステータスコードを捕捉するラッパー。
type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// NewLoggingMiddleware はリクエストログを出力するミドルウェアを返す。
// メソッド、パス、ステータス、処理時間を構造化ログに記録し、
// recorderが指定されていればステータスコードをメトリクスにも記録する。
func NewLoggingMiddleware(recorder StatusRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			cw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(cw, r)

			slog.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", cw.status),
				slog.Duration("duration", time.Since(start)),
			)

			if recorder != nil {
				recorder.RecordHTTPStatus(cw.status)
			}
		})
	}
}
