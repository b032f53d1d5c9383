package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"labhub/internal/mediastore"
	"labhub/internal/metrics"
	"labhub/internal/qrcode"
	"labhub/internal/store"
)

const (
	allowRemoteEnvKey = "LABHUB_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 5 * time.Minute
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 60 * time.Second
)

// Store is the persistence the server needs.
type Store interface {
	store.LabStore
	store.AccountStore
}

// UploadPolicy limits what lab write requests may carry.
type UploadPolicy struct {
	MaxBodyBytes       int64
	MultipartMaxMemory int64
	MaxImages          int
	AllowedMediaTypes  []string
}

// Options configures a Server.
type Options struct {
	Store      Store
	Media      *mediastore.Local
	QR         *qrcode.Generator
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Uploads    UploadPolicy
	SessionTTL time.Duration
}

// Server wraps HTTP handlers for the labhub API.
type Server struct {
	addr            string
	media           *mediastore.Local
	qr              *qrcode.Generator
	metrics         *metrics.Metrics
	labService      *LabService
	followerService *FollowerService
	accountService  *AccountService
	uploads         uploadPolicy
	logger          *slog.Logger
	now             func() time.Time
}

// New creates a new server instance.
func New(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:    addr,
		media:   opts.Media,
		qr:      opts.QR,
		metrics: opts.Metrics,
		uploads: newUploadPolicy(opts.Uploads),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if opts.Store != nil {
		var media mediastore.MediaStore
		if opts.Media != nil {
			media = opts.Media
		}
		s.labService = NewLabService(opts.Store, media, opts.QR, opts.Metrics, logger)
		s.followerService = NewFollowerService(opts.Store)
		s.accountService = NewAccountService(opts.Store, opts.SessionTTL)
	}
	return s
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
