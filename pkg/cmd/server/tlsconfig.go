package server

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/schaatslog/log"
)

// certs serves the key pair from certFile/keyFile and reloads it whenever one
// of the files changes.
type certs struct {
	ctx      context.Context
	certFile string
	keyFile  string
	log      *log.Logger
	cert     *tls.Certificate
	mu       sync.RWMutex
}

// NewTLSConfigProvider returns nil if the key pair cannot be loaded.
func NewTLSConfigProvider(ctx context.Context, certFile, keyFile string) *tls.Config {
	c := &certs{
		ctx:      ctx,
		certFile: certFile,
		keyFile:  keyFile,
		log:      log.GetFromContext(ctx).Named("server.certs"),
	}
	c.loadCert()
	if c.current() == nil {
		return nil
	}
	go c.watchAndReloadCerts()
	return &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return c.current(), nil
		},
		MinVersion: tls.VersionTLS13,
	}
}

func (c *certs) current() *tls.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert
}

func (c *certs) watchAndReloadCerts() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.log.Error("could not create fsnotify watcher", log.ErrorField(err))
		return
	}
	defer watcher.Close()
	for _, f := range []string{c.certFile, c.keyFile} {
		if err := watcher.Add(f); err != nil {
			c.log.Error("could not watch file", log.String("file", f), log.ErrorField(err))
		}
	}
	for {
		select {
		case <-c.ctx.Done():
			c.log.Info("context done, stopping cert reload")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				c.log.Info("watcher events channel closed, stopping cert reload")
				return
			}
			c.log.Debug("change detected",
				log.String("file", event.Name), log.Stringer("op", event.Op))
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Chmod) {
				c.log.Info("cert file changed, reloading cert",
					log.String("file", event.Name))
				c.loadCert()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("watcher error", log.ErrorField(err))
		}
	}
}

// loadCert keeps the previous key pair if the files cannot be loaded.
func (c *certs) loadCert() {
	c.log.Info("Loading cert",
		log.String("key", c.keyFile),
		log.String("cert", c.certFile))
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		c.log.Error("could not load TLS key pair", log.ErrorField(err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = &cert
}
