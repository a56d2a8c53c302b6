package sshtunnel

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// sshDial is used to establish SSH connections; override in tests.
var sshDial = func(network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	return ssh.Dial(network, addr, cfg)
}

// Config describes the desired forwarding binding: a local port forwarded to
// TargetHost:TargetPort through the bastion.
type Config struct {
	SourceID    string
	BastionHost string
	BastionPort int
	Username    string
	Signer      ssh.Signer

	TargetHost string
	TargetPort int

	// LocalPort is the preferred local port. If busy, the next free port
	// above it is used, up to PortScanAttempts ports.
	LocalPort        int
	PortScanAttempts int

	DialTimeout time.Duration
}

func (c Config) clientConfig() *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            c.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.Signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.DialTimeout,
	}
}

func (c Config) bastionAddr() string {
	port := c.BastionPort
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.BastionHost, fmt.Sprintf("%d", port))
}

// Preflight verifies the bastion host accepts an SSH connection before any
// tunnel resources are committed. The dial is bounded by cfg.DialTimeout.
func Preflight(ctx context.Context, cfg Config) error {
	dialDone := make(chan struct{})
	var client *ssh.Client
	var dialErr error
	go func() {
		defer close(dialDone)
		client, dialErr = sshDial("tcp", cfg.bastionAddr(), cfg.clientConfig())
	}()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "preflight cancelled")
	case <-dialDone:
	}
	if dialErr != nil {
		return dialErr
	}
	return client.Close()
}

// ErrNoFreePort is returned by Open when the scanned port range is exhausted.
var ErrNoFreePort = errors.New("no free local port in scan range")

/// Forwarder is a running tunnel: a local listener whose accepted connections
// are forwarded to the target through an SSH connection to the bastion.
type Forwarder struct {
	sourceID  string
	localPort int
	target    string
	startedAt time.Time

	client   *ssh.Client
	listener net.Listener
	cancel   context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Open dials the bastion, binds a local port, and starts the forwarding loop.
// On any failure every partially opened resource is released before return.
func Open(ctx context.Context, cfg Config) (*Forwarder, error) {
	client, err := sshDial("tcp", cfg.bastionAddr(), cfg.clientConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "dial bastion %s", cfg.BastionHost)
	}

	listener, port, err := bindLocal(cfg.LocalPort, cfg.PortScanAttempts)
	if err != nil {
		client.Close()
		return nil, err
	}

	fwdCtx, cancel := context.WithCancel(context.Background())
	f := &Forwarder{
		sourceID:  cfg.SourceID,
		localPort: port,
		target:    net.JoinHostPort(cfg.TargetHost, fmt.Sprintf("%d", cfg.TargetPort)),
		startedAt: time.Now(),
		client:    client,
		listener:  listener,
		cancel:    cancel,
	}
	go f.acceptLoop(fwdCtx)

	log.Info().
		Str("source", cfg.SourceID).
		Int("local_port", port).
		Str("target", f.target).
		Msg("tunnel active")
	return f, nil
}

// bindLocal binds 127.0.0.1 at the first free port in [base, base+attempts).
func bindLocal(base, attempts int) (net.Listener, int, error) {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		port := base + i
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return l, port, nil
		}
	}
	return nil, 0, ErrNoFreePort
}

func (f *Forwarder) acceptLoop(ctx context.Context) {
	defer f.listener.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Deadline so the loop notices cancellation
		if tl, ok := f.listener.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(1 * time.Second))
		}

		conn, err := f.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Warn().Str("source", f.sourceID).Err(err).Msg("tunnel accept error")
			return
		}

		remote, err := f.client.Dial("tcp", f.target)
		if err != nil {
			log.Warn().Str("source", f.sourceID).Str("target", f.target).Err(err).Msg("ssh dial failed")
			conn.Close()
			continue
		}

		go bidirectionalCopy(ctx, conn, remote)
	}
}

// LocalPort returns the bound local port.
func (f *Forwarder) LocalPort() int { return f.localPort }

// StartedAt returns when the forwarder was opened.
func (f *Forwarder) StartedAt() time.Time { return f.startedAt }

// Alive reports whether the forwarder has not been closed.
func (f *Forwarder) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// Probe verifies the underlying SSH connection still responds, bounded by
// timeout. A forwarder whose bastion connection died externally fails here
// even though Alive still reports true.
func (f *Forwarder) Probe(timeout time.Duration) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("forwarder closed")
	}
	client := f.client
	f.mu.Unlock()
	if client == nil {
		return errors.New("no ssh connection")
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errors.New("liveness probe timed out")
	}
}

// Close cancels the forwarding loop, releases the local port, and closes the
// SSH connection. Safe to call more than once.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	var err error
	if f.listener != nil {
		err = f.listener.Close()
	}
	if f.client != nil {
		if cerr := f.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// bidirectionalCopy pipes data between two connections until one side closes
// or the context is cancelled.
func bidirectionalCopy(ctx context.Context, a, b net.Conn) {
	done := make(chan struct{}, 2)
	cp := func(dst, src net.Conn) {
		defer func() { done <- struct{}{} }()
		io.Copy(dst, src)
	}
	go cp(a, b)
	go cp(b, a)

	select {
	case <-done:
	case <-ctx.Done():
	}
	a.Close()
	b.Close()
	<-done
}
