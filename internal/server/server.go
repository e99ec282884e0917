// Package server exposes the HTTP surfaces. The status page has a listener
// of its own; the remote configuration channel, the preview stream and
// metrics share a second one.
package server

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/xmaslights/internal/app"
)

// StatusSource supplies the figures shown on the status page.
type StatusSource interface {
	Status() app.Status
}

// StatusOptions configure the status listener.
type StatusOptions struct {
	Status  StatusSource
	Refresh time.Duration
	Log     zerolog.Logger
}

// ControlOptions configure the control listener. Nil handlers are not routed.
type ControlOptions struct {
	Link    http.Handler // websocket configuration channel
	Frames  http.Handler // websocket preview stream
	Metrics http.Handler
	Log     zerolog.Logger
}

type server struct {
	status  StatusSource
	refresh int
}

// NewStatus builds the status surface: GET / and nothing else.
func NewStatus(o StatusOptions) http.Handler {
	if o.Refresh <= 0 {
		o.Refresh = 2 * time.Second
	}
	s := &server{
		status:  o.Status,
		refresh: max(1, int(o.Refresh/time.Second)),
	}
	r := chi.NewRouter()
	r.Use(requestLogger(o.Log.With().Str("component", "status").Logger()))
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleStatus)
	return r
}

// NewControl builds the router for the remote link, the preview stream and
// metrics.
func NewControl(o ControlOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(o.Log.With().Str("component", "control").Logger()))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if o.Link != nil {
		r.Handle("/link", o.Link)
	}
	if o.Frames != nil {
		r.Handle("/frames", o.Frames)
	}
	if o.Metrics != nil {
		r.Handle("/metrics", o.Metrics)
	}
	return r
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html><head><meta http-equiv="refresh" content="{{.Refresh}}"><title>Xmas Lights</title></head>
<body>
<h1>Xmas Lights</h1>
<p>Estimated power: {{printf "%.0f" .S.PowerMW}} mW{{if .S.Limited}} (ceiling active, needs {{printf "%.0f" .S.RequiredMW}} mW){{end}}</p>
<p>Frame rate: {{printf "%.1f" .S.FPS}} fps</p>
<p>Effect: {{.S.Index}} ({{.S.Name}})</p>
<p>Lights: {{.S.LightCount}}{{if not .S.Running}}, stopped{{end}}{{if .S.Paused}}, paused while connected{{end}}</p>
</body></html>
`))

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Connection", "close")
	_ = statusPage.Execute(w, struct {
		Refresh int
		S       app.Status
	}{s.refresh, s.status.Status()})
}

func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			l.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
// The listener is opened before Run returns control to the caller's
// goroutine so a bad address fails fast.
func Run(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) (<-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:     h,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	done := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server starting")
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	return done, nil
}
