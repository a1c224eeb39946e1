package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marwaneigou/RECRUTAI/internal/config"
	"github.com/marwaneigou/RECRUTAI/internal/errors"
)

// ReloadMetrics tracks certificate reload outcomes for the health endpoint.
type ReloadMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadSuccess  bool
	LastReloadError    string
}

// CertReloader serves the current TLS certificate and hot-reloads it when
// the certificate files change on disk. File change events are debounced
// so an atomic cert+key rotation triggers a single reload.
type CertReloader struct {
	mu sync.RWMutex

	certFile string
	keyFile  string
	caFile   string

	cert    *tls.Certificate
	metrics ReloadMetrics

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reloadCallback func(success bool, err error)
	logger         *errors.Logger

	running bool
}

// NewCertReloader loads the initial certificate and prepares a watcher for
// the configured files.
func NewCertReloader(tlsCfg *config.TLSConfig, logger *errors.Logger) (*CertReloader, error) {
	debounce := tlsCfg.AutoReload.DebounceDelay
	if debounce == 0 {
		debounce = time.Second
	}

	cr := &CertReloader{
		certFile:      tlsCfg.CertFile,
		keyFile:       tlsCfg.KeyFile,
		caFile:        tlsCfg.CAFile,
		debounceDelay: debounce,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}

	if err := cr.loadCertificate(); err != nil {
		return nil, err
	}
	return cr, nil
}

// SetReloadCallback registers a callback invoked after every reload attempt.
func (cr *CertReloader) SetReloadCallback(cb func(success bool, err error)) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.reloadCallback = cb
}

// GetCertificate is the tls.Config callback serving the current certificate.
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cr.cert, nil
}

// Start begins watching the certificate files for changes.
func (cr *CertReloader) Start() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.running {
		return fmt.Errorf("certificate reloader is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	cr.fsWatcher = watcher

	for _, file := range cr.watchedFilesLocked() {
		if err := cr.addFileToWatcher(file); err != nil {
			cr.logger.Warn("Failed to watch certificate file", "file", file, "error", err)
		}
	}

	cr.running = true
	go cr.watchLoop()

	cr.logger.Info("Certificate file watcher started",
		"files", cr.watchedFilesLocked(),
		"debounce_delay", cr.debounceDelay)
	return nil
}

// Stop stops the watcher goroutine and releases the fsnotify handle.
func (cr *CertReloader) Stop() error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if !cr.running {
		return nil
	}

	close(cr.stopChan)

	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}

	if cr.fsWatcher != nil {
		if err := cr.fsWatcher.Close(); err != nil {
			cr.logger.LogError(err, "Failed to close file system watcher")
			return err
		}
	}

	cr.running = false
	cr.logger.Info("Certificate file watcher stopped")
	return nil
}

// IsRunning reports whether the watcher goroutine is active.
func (cr *CertReloader) IsRunning() bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.running
}

// WatchedFiles returns the certificate files being watched.
func (cr *CertReloader) WatchedFiles() []string {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.watchedFilesLocked()
}

func (cr *CertReloader) watchedFilesLocked() []string {
	files := []string{}
	for _, file := range []string{cr.certFile, cr.keyFile, cr.caFile} {
		if file != "" {
			files = append(files, file)
		}
	}
	return files
}

// Stats returns reload counters for the health endpoint.
func (cr *CertReloader) Stats() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	return map[string]any{
		"reload_count":         cr.metrics.ReloadCount,
		"reload_success_count": cr.metrics.ReloadSuccessCount,
		"reload_failure_count": cr.metrics.ReloadFailureCount,
		"last_reload_time":     cr.metrics.LastReloadTime,
		"last_reload_success":  cr.metrics.LastReloadSuccess,
		"last_reload_error":    cr.metrics.LastReloadError,
	}
}

// CheckExpiry returns the time remaining until the current leaf certificate
// expires.
func (cr *CertReloader) CheckExpiry() (time.Duration, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.cert == nil || len(cr.cert.Certificate) == 0 {
		return 0, fmt.Errorf("no certificate loaded")
	}

	leaf := cr.cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cr.cert.Certificate[0])
		if err != nil {
			return 0, fmt.Errorf("failed to parse certificate: %w", err)
		}
		leaf = parsed
	}

	return time.Until(leaf.NotAfter), nil
}

// loadCertificate reads the cert/key pair from disk and swaps it in.
func (cr *CertReloader) loadCertificate() error {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key: %w", err)
	}

	cr.mu.Lock()
	cr.cert = &cert
	cr.mu.Unlock()
	return nil
}

// reload performs a reload attempt and records the outcome.
func (cr *CertReloader) reload() {
	err := cr.loadCertificate()

	cr.mu.Lock()
	cr.metrics.ReloadCount++
	cr.metrics.LastReloadTime = time.Now()
	if err != nil {
		cr.metrics.ReloadFailureCount++
		cr.metrics.LastReloadSuccess = false
		cr.metrics.LastReloadError = err.Error()
	} else {
		cr.metrics.ReloadSuccessCount++
		cr.metrics.LastReloadSuccess = true
		cr.metrics.LastReloadError = ""
	}
	cb := cr.reloadCallback
	cr.mu.Unlock()

	if cb != nil {
		cb(err == nil, err)
	}
}

// addFileToWatcher watches a file and its directory, the latter to catch
// atomic writes done as rename operations.
func (cr *CertReloader) addFileToWatcher(file string) error {
	if err := cr.fsWatcher.Add(file); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", file, err)
	}

	dir := filepath.Dir(file)
	if err := cr.fsWatcher.Add(dir); err != nil {
		cr.logger.Warn("Failed to watch directory for atomic writes",
			"directory", dir, "error", err)
	}

	return nil
}

// watchLoop is the main event loop for file watching
func (cr *CertReloader) watchLoop() {
	for {
		select {
		case event, ok := <-cr.fsWatcher.Events:
			if !ok {
				return
			}
			if cr.shouldProcessEvent(event) {
				cr.scheduleReload()
			}

		case err, ok := <-cr.fsWatcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "File watcher error")

		case <-cr.reloadChan:
			cr.logger.Info("Certificate files changed, triggering reload")
			cr.reload()

		case <-cr.stopChan:
			return
		}
	}
}

// shouldProcessEvent filters events down to mutations of the watched files.
func (cr *CertReloader) shouldProcessEvent(event fsnotify.Event) bool {
	isWatchedFile := false
	for _, file := range cr.WatchedFiles() {
		if event.Name == file || filepath.Base(event.Name) == filepath.Base(file) {
			isWatchedFile = true
			break
		}
	}
	if !isWatchedFile {
		return false
	}

	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload schedules a debounced reload
func (cr *CertReloader) scheduleReload() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}

	cr.debounceTimer = time.AfterFunc(cr.debounceDelay, func() {
		select {
		case cr.reloadChan <- struct{}{}:
		default:
			// reload already scheduled
		}
	})
}
