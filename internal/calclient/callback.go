package calclient

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// CallbackServer is a single-use local listener for the provider redirect.
// It hands the callback to Client.HandleRedirect, 303-redirects the browser
// to the clean URL and renders the outcome there.
type CallbackServer struct {
	client   *Client
	redirect *url.URL
	server   *http.Server
	listener net.Listener

	mu     sync.Mutex
	result *callbackResult
	once   sync.Once
	done   chan error
}

type callbackResult struct {
	err error
}

// NewCallbackServer prepares a listener for the host and path of the
// client's redirect URI.
func NewCallbackServer(client *Client) (*CallbackServer, error) {
	u, err := url.Parse(client.RedirectURI())
	if err != nil {
		return nil, fmt.Errorf("parse redirect URI: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q has no host", client.RedirectURI())
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	u.Path = path

	s := &CallbackServer{client: client, redirect: u, done: make(chan error, 1)}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handle)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s, nil
}

// Start binds the listener. Serving happens in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.redirect.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.redirect.Host, err)
	}
	s.listener = ln
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.finish(err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when the redirect URI uses port 0.
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.redirect.Host
	}
	return s.listener.Addr().String()
}

// Done reports the authorization outcome once the result page was served.
func (s *CallbackServer) Done() <-chan error {
	return s.done
}

// Wait blocks until the callback completes, ctx ends or timeout elapses.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) error {
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for authorization")
	}
}

func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *CallbackServer) finish(err error) {
	s.once.Do(func() {
		s.done <- err
	})
}

func (s *CallbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("code") != "" || q.Get("error") != "" {
		callback := *s.redirect
		callback.RawQuery = r.URL.RawQuery

		// The request context ends with the browser connection; the exchange
		// must not.
		clean, err := s.client.HandleRedirect(context.WithoutCancel(r.Context()), &callback)

		s.mu.Lock()
		s.result = &callbackResult{err: err}
		s.mu.Unlock()

		http.Redirect(w, r, clean.RequestURI(), http.StatusSeeOther)
		return
	}

	s.mu.Lock()
	result := s.result
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html")
	if result == nil {
		fmt.Fprint(w, page("Waiting for authorization", "Complete the sign-in in the provider window.", true))
		return
	}
	if result.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, page("Authorization Failed", result.err.Error(), false))
	} else {
		fmt.Fprint(w, page("Authorization Successful", "You can close this window and return to the terminal.", true))
	}
	s.finish(result.err)
}

func page(title, message string, ok bool) string {
	color := "#4ade80"
	if !ok {
		color = "#f87171"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>%[1]s</title>
	<style>
		body { font-family: -apple-system, sans-serif; display: flex;
		       justify-content: center; align-items: center; height: 100vh;
		       margin: 0; background: #1a1a1a; color: #fff; }
		.card { background: #2d2d2d; padding: 40px; border-radius: 12px;
		        box-shadow: 0 2px 10px rgba(0,0,0,0.3); text-align: center; }
		h1 { color: %[3]s; margin-bottom: 10px; }
		p { color: #a1a1aa; }
	</style>
</head>
<body>
	<div class="card">
		<h1>%[1]s</h1>
		<p>%[2]s</p>
	</div>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(message), color)
}
