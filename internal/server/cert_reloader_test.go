package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marwaneigou/RECRUTAI/internal/config"
	recrutaiErrors "github.com/marwaneigou/RECRUTAI/internal/errors"
)

// writeTestCertPair generates a self-signed certificate valid for validity
// and writes the PEM-encoded pair into dir.
func writeTestCertPair(t *testing.T, dir string, validity time.Duration) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validity),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})

	if err := os.WriteFile(certFile, certPEM, 0600); err != nil {
		t.Fatalf("write cert file: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return certFile, keyFile
}

func newTestReloader(t *testing.T, certFile, keyFile string) *CertReloader {
	t.Helper()

	logger, err := recrutaiErrors.New("error")
	if err != nil {
		t.Fatalf("New logger: %v", err)
	}

	cr, err := NewCertReloader(&config.TLSConfig{
		CertFile: certFile,
		KeyFile:  keyFile,
	}, logger)
	if err != nil {
		t.Fatalf("NewCertReloader: %v", err)
	}
	return cr
}

func TestCertReloaderServesLoadedCertificate(t *testing.T) {
	certFile, keyFile := writeTestCertPair(t, t.TempDir(), 24*time.Hour)
	cr := newTestReloader(t, certFile, keyFile)

	cert, err := cr.GetCertificate(nil)
	if err != nil {
		t.Fatalf("GetCertificate: %v", err)
	}
	if cert == nil || len(cert.Certificate) == 0 {
		t.Fatal("expected a loaded certificate")
	}
}

func TestCertReloaderMissingFiles(t *testing.T) {
	logger, err := recrutaiErrors.New("error")
	if err != nil {
		t.Fatalf("New logger: %v", err)
	}

	_, err = NewCertReloader(&config.TLSConfig{
		CertFile: "/nonexistent/server.crt",
		KeyFile:  "/nonexistent/server.key",
	}, logger)
	if err == nil {
		t.Fatal("expected error for missing certificate files")
	}
}

func TestCertReloaderCheckExpiry(t *testing.T) {
	certFile, keyFile := writeTestCertPair(t, t.TempDir(), 24*time.Hour)
	cr := newTestReloader(t, certFile, keyFile)

	remaining, err := cr.CheckExpiry()
	if err != nil {
		t.Fatalf("CheckExpiry: %v", err)
	}
	if remaining <= 23*time.Hour || remaining > 24*time.Hour {
		t.Errorf("remaining = %v, want about 24h", remaining)
	}
}

func TestCertReloaderReloadUpdatesMetrics(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeTestCertPair(t, dir, 24*time.Hour)
	cr := newTestReloader(t, certFile, keyFile)

	var callbackSuccess bool
	cr.SetReloadCallback(func(success bool, err error) {
		callbackSuccess = success
	})

	// Rotate the pair on disk and reload
	writeTestCertPair(t, dir, 48*time.Hour)
	cr.reload()

	stats := cr.Stats()
	if stats["reload_count"].(int64) != 1 {
		t.Errorf("reload_count = %v, want 1", stats["reload_count"])
	}
	if stats["reload_success_count"].(int64) != 1 {
		t.Errorf("reload_success_count = %v, want 1", stats["reload_success_count"])
	}
	if !callbackSuccess {
		t.Error("expected reload callback to report success")
	}

	remaining, err := cr.CheckExpiry()
	if err != nil {
		t.Fatalf("CheckExpiry after reload: %v", err)
	}
	if remaining <= 24*time.Hour {
		t.Errorf("remaining = %v, want more than 24h after rotation", remaining)
	}
}

func TestCertReloaderReloadFailureKeepsOldCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeTestCertPair(t, dir, 24*time.Hour)
	cr := newTestReloader(t, certFile, keyFile)

	if err := os.WriteFile(certFile, []byte("not a certificate"), 0600); err != nil {
		t.Fatalf("corrupt cert file: %v", err)
	}
	cr.reload()

	stats := cr.Stats()
	if stats["reload_failure_count"].(int64) != 1 {
		t.Errorf("reload_failure_count = %v, want 1", stats["reload_failure_count"])
	}
	if stats["last_reload_success"].(bool) {
		t.Error("expected last_reload_success to be false")
	}

	// The previously loaded certificate must still be served
	cert, err := cr.GetCertificate(nil)
	if err != nil {
		t.Fatalf("GetCertificate after failed reload: %v", err)
	}
	if cert == nil {
		t.Fatal("expected old certificate to survive a failed reload")
	}
}

func TestCertReloaderShouldProcessEvent(t *testing.T) {
	certFile, keyFile := writeTestCertPair(t, t.TempDir(), 24*time.Hour)
	cr := newTestReloader(t, certFile, keyFile)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to cert file", fsnotify.Event{Name: certFile, Op: fsnotify.Write}, true},
		{"rename of key file", fsnotify.Event{Name: keyFile, Op: fsnotify.Rename}, true},
		{"create with matching basename", fsnotify.Event{Name: "/other/dir/server.crt", Op: fsnotify.Create}, true},
		{"chmod on cert file", fsnotify.Event{Name: certFile, Op: fsnotify.Chmod}, false},
		{"write to unrelated file", fsnotify.Event{Name: "/tmp/unrelated.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cr.shouldProcessEvent(tt.event); got != tt.want {
				t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestCertReloaderStartStop(t *testing.T) {
	certFile, keyFile := writeTestCertPair(t, t.TempDir(), 24*time.Hour)
	cr := newTestReloader(t, certFile, keyFile)

	if cr.IsRunning() {
		t.Fatal("reloader should not be running before Start")
	}
	if err := cr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !cr.IsRunning() {
		t.Fatal("reloader should be running after Start")
	}
	if err := cr.Start(); err == nil {
		t.Error("expected error starting an already running reloader")
	}

	if err := cr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if cr.IsRunning() {
		t.Fatal("reloader should not be running after Stop")
	}

	if len(cr.WatchedFiles()) != 2 {
		t.Errorf("WatchedFiles = %d entries, want 2", len(cr.WatchedFiles()))
	}
}
