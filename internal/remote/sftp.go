package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

const defaultSFTPPort = 22

// SFTPClient reads the drop over SSH.
type SFTPClient struct {
	ssh    *ssh.Client
	client *sftp.Client
	host   string
	log    logger.Logger
}

// sshConfig builds the client config from password or private key authentication.
// Host keys are verified against KnownHosts when it is set.
func sshConfig(cfg Config) (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:    cfg.Username,
		Timeout: cfg.Timeout,
		//nolint:gosec // drop servers on the store LAN rarely publish host keys; KnownHosts enables checking
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	if cfg.KnownHosts != "" {
		callback, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
		}
		config.HostKeyCallback = callback
	}

	switch {
	case cfg.KeyFile != "":
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: parse private key: %w", err)
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case cfg.Password != "":
		config.Auth = []ssh.AuthMethod{ssh.Password(cfg.Password)}
	default:
		return nil, fmt.Errorf("sftp: no authentication method configured")
	}

	return config, nil
}

// DialSFTP connects and authenticates. The dial honours ctx cancellation.
func DialSFTP(ctx context.Context, cfg Config, log logger.Logger) (*SFTPClient, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	port := cfg.Port
	if port == 0 {
		port = defaultSFTPPort
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	config, err := sshConfig(cfg)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfiguration).Context("host", cfg.Host).Build()
	}

	type result struct {
		c   *SFTPClient
		err error
	}
	resultChan := make(chan result, 1)

	go func() {
		dialer := net.Dialer{Timeout: cfg.Timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			resultChan <- result{err: fmt.Errorf("sftp: connect %s: %w", addr, err)}
			return
		}
		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			conn.Close()
			resultChan <- result{err: fmt.Errorf("sftp: handshake with %s: %w", addr, err)}
			return
		}
		sshClient := ssh.NewClient(sshConn, chans, reqs)

		client, err := sftp.NewClient(sshClient)
		if err != nil {
			sshClient.Close()
			resultChan <- result{err: fmt.Errorf("sftp: start subsystem: %w", err)}
			return
		}
		resultChan <- result{c: &SFTPClient{ssh: sshClient, client: client, host: cfg.Host, log: log}}
	}()

	select {
	case <-ctx.Done():
		// the goroutine still owns a late connection; close it when it arrives
		go func() {
			if r := <-resultChan; r.c != nil {
				_ = r.c.Close()
			}
		}()
		return nil, errors.TransferError(ctx.Err(), addr)
	case r := <-resultChan:
		if r.err != nil {
			return nil, errors.TransferError(r.err, addr)
		}
		log.Debug("connected", logger.String("host", cfg.Host))
		return r.c, nil
	}
}

// List implements Client.
func (c *SFTPClient) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.TransferError(err, dir)
	}
	infos, err := c.client.ReadDir(dir)
	if err != nil {
		return nil, errors.TransferError(fmt.Errorf("sftp: list %s: %w", dir, err), dir)
	}

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		kind := KindOther
		switch {
		case fi.Mode().IsRegular():
			kind = KindFile
		case fi.IsDir():
			kind = KindDir
		case fi.Mode()&os.ModeSymlink != 0:
			kind = KindLink
		}
		entries = append(entries, Entry{
			Name:       fi.Name(),
			Kind:       kind,
			ModifiedAt: fi.ModTime(),
			Size:       fi.Size(),
		})
	}
	return entries, nil
}

// Fetch implements Client.
func (c *SFTPClient) Fetch(ctx context.Context, remotePath, localPath string) error {
	src, err := c.client.Open(remotePath)
	if err != nil {
		return errors.TransferError(fmt.Errorf("sftp: open %s: %w", remotePath, err), remotePath)
	}
	defer src.Close()

	if err := writeAtomic(localPath, ctxReader{ctx: ctx, r: src}); err != nil {
		return errors.TransferError(fmt.Errorf("sftp: fetch %s: %w", remotePath, err), remotePath)
	}
	c.log.Debug("fetched",
		logger.String("remote_path", remotePath),
		logger.String("local_path", localPath))
	return nil
}

// Close implements Client.
func (c *SFTPClient) Close() error {
	var errs []error
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ssh != nil {
		if err := c.ssh.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
